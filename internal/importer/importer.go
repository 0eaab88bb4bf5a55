// Package importer loads transaction history from files into a store.
// Supported formats are CSV with a header line and CAMT.053 bank statements.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Format names.
const (
	FormatCSV  = "csv"
	FormatCAMT = "camt053"
)

// importNamespace seeds the deterministic IDs of rows that carry none, so
// importing the same file twice is rejected as a duplicate.
var importNamespace = uuid.MustParse("6f1c2c9e-4a8e-4d8b-9a53-2f1f0f6b7a10")

// ErrUnsupportedFormat is returned for files whose extension is not recognised.
var ErrUnsupportedFormat = errors.New("importer: unsupported file format")

// FormatError reports a file that does not match its expected format.
type FormatError struct {
	File   string
	Format string
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	prefix := e.Format
	if e.File != "" {
		prefix = fmt.Sprintf("%s file '%s'", e.Format, e.File)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Sink receives parsed transactions. store.TransactionStore satisfies it.
type Sink interface {
	InsertBatch(ctx context.Context, txs []models.Transaction) error
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xml", ".camt", ".053":
		return FormatCAMT, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Importer parses files concurrently and writes them to a Sink.
type Importer struct {
	sink        Sink
	logger      logging.Logger
	concurrency int
	camt        CAMTOptions
}

// Option configures an Importer.
type Option func(*Importer)

// WithConcurrency bounds the number of files processed at once.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithCAMTOptions sets CAMT.053 parsing options.
func WithCAMTOptions(opts CAMTOptions) Option {
	return func(im *Importer) {
		im.camt = opts
	}
}

// New creates an Importer writing to sink.
func New(sink Sink, logger logging.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = logging.Nop()
	}
	im := &Importer{
		sink:        sink,
		logger:      logger.WithField(logging.FieldComponent, logging.ComponentImporter),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Result is the outcome of importing one file.
type Result struct {
	File     string
	Format   string
	Imported int
	Err      error
}

// ParseFile reads one file, detecting the format from its extension. Rows
// without an ID get a deterministic one derived from userID, the file name and
// the row's position and content.
func (im *Importer) ParseFile(path, userID string) ([]models.Transaction, string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, format, fmt.Errorf("error opening file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			im.logger.WithError(err).Warn("Failed to close file")
		}
	}()

	txs, err := parse(f, format, im.camt)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.File = path
		}
		return nil, format, err
	}

	base := filepath.Base(path)
	for i := range txs {
		txs[i].UserID = userID
		if ref := txs[i].ID; ref != "" {
			txs[i].ID = scopedID(userID, ref)
		} else {
			txs[i].ID = derivedID(userID, base, i, txs[i])
		}
	}
	return txs, format, nil
}

func parse(r io.Reader, format string, camt CAMTOptions) ([]models.Transaction, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatCAMT:
		return ParseCAMT(r, camt)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// scopedID keys a bank reference by user so a shared statement imports once
// per user.
func scopedID(userID, ref string) string {
	return uuid.NewSHA1(importNamespace, []byte(userID+"|ref|"+ref)).String()
}

func derivedID(userID, file string, index int, tx models.Transaction) string {
	key := fmt.Sprintf("%s|%s|%d|%s|%s", userID, file, index, tx.Timestamp.UTC().Format(time.RFC3339Nano), tx.Amount.String())
	return uuid.NewSHA1(importNamespace, []byte(key)).String()
}

// ImportFiles imports every path for userID. Files are independent: a failure
// in one does not stop the others. The returned error joins all per-file
// failures; results are in the order of paths.
func (im *Importer) ImportFiles(ctx context.Context, userID string, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(im.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = im.importOne(ctx, userID, path)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.File, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (im *Importer) importOne(ctx context.Context, userID, path string) Result {
	start := time.Now()
	res := Result{File: path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	txs, format, err := im.ParseFile(path, userID)
	res.Format = format
	if err != nil {
		res.Err = err
		im.logger.WithError(err).Error("Failed to parse file", logging.Field{Key: logging.FieldFile, Value: path})
		return res
	}

	if len(txs) > 0 {
		if err := im.sink.InsertBatch(ctx, txs); err != nil {
			res.Err = fmt.Errorf("store transactions: %w", err)
			im.logger.WithError(err).Error("Failed to store transactions", logging.Field{Key: logging.FieldFile, Value: path})
			return res
		}
	}
	res.Imported = len(txs)

	im.logger.Info("Imported file",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldFormat, Value: format},
		logging.Field{Key: logging.FieldCount, Value: len(txs)},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})
	return res
}

// CollectFiles expands directories in paths into the supported files they
// contain, recursively and sorted. Plain files are kept as given.
func CollectFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ferr := DetectFormat(path); ferr == nil {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
