// Package forecast runs a single forecast from the command line
package forecast

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"smart-budget-planner/cmd/root"
	"smart-budget-planner/internal/container"
	"smart-budget-planner/internal/dateutils"
	pipeline "smart-budget-planner/internal/forecast"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/importer"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"
	"smart-budget-planner/internal/report"
	"smart-budget-planner/internal/store"
	"smart-budget-planner/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const opParseFlags = "parse forecast flags"

// Options are the inputs of one CLI forecast.
type Options struct {
	UserID       string
	Budget       string
	EntriesFile  string
	Entries      []string
	HistoryFiles []string
	Today        string
	Format       string
}

var opts Options

// Cmd represents the forecast command
var Cmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the current month against a budget",
	Long: `Forecast whether the current month will end over or under budget.

History comes from the configured store for --user, or from --history files
(CSV or CAMT.053) when given. Current-month amounts come from --entry flags
and/or an --entries CSV file with Date,Amount columns.

Example:
  budget-planner forecast --user alice --budget 1200 --entry 2024-10-05=300
  budget-planner forecast --history 2023.csv --entries october.csv --budget 1200 -f json`,
	RunE: forecastFunc,
}

func init() {
	Cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "User whose stored history is used")
	Cmd.Flags().StringVarP(&opts.Budget, "budget", "b", "", "Monthly budget (required)")
	Cmd.Flags().StringVarP(&opts.EntriesFile, "entries", "e", "", "CSV file of current-month entries (Date,Amount)")
	Cmd.Flags().StringArrayVar(&opts.Entries, "entry", nil, "Current-month entry as YYYY-MM-DD=amount (repeatable)")
	Cmd.Flags().StringSliceVar(&opts.HistoryFiles, "history", nil, "History files to use instead of the store")
	Cmd.Flags().StringVar(&opts.Today, "today", "", "Reference date for the trailing window (YYYY-MM-DD, default today)")
	_ = Cmd.MarkFlagRequired("budget")
}

func forecastFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer(cmd.Context())
	if err != nil {
		return err
	}
	o := opts
	o.Format = root.SharedFlags.Format
	return Run(cmd.Context(), c, o, cmd.OutOrStdout())
}

// Run parses the options, runs the pipeline and writes the rendered result.
func Run(ctx context.Context, c *container.Container, o Options, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.GetLogger()

	if err := validation.IsValidOutputFormat(o.Format, report.FormatText, report.FormatJSON, report.FormatYAML); err != nil {
		return forecasterror.Wrap(forecasterror.MalformedInput, opParseFlags, "--format", err)
	}
	req, err := buildRequest(o)
	if err != nil {
		return err
	}

	userID := o.UserID
	if userID == "" && len(o.HistoryFiles) == 0 {
		return forecasterror.Malformed(opParseFlags, "--user or --history is required")
	}
	var provider pipeline.HistoryProvider = store.History{Store: c.GetStore()}
	if len(o.HistoryFiles) > 0 {
		if userID == "" {
			userID = "cli"
		}
		provider, err = fileHistory(c.GetImporter(), o.HistoryFiles, userID, logger)
		if err != nil {
			return err
		}
	}

	cfg := c.GetConfig()
	orchOpts := []pipeline.Option{
		pipeline.WithModelFactory(pipeline.NewForestModelFactory(container.RegressionConfig(cfg), logger)),
		pipeline.WithTimeout(cfg.Forecast.Timeout),
	}
	if o.Today != "" {
		today, err := dateutils.ParseISODate(o.Today)
		if err != nil {
			return forecasterror.Malformedf(opParseFlags, "--today: %v", err)
		}
		orchOpts = append(orchOpts, pipeline.WithClock(func() time.Time { return today }))
	}

	res, err := pipeline.NewOrchestrator(provider, logger, orchOpts...).Run(ctx, userID, req)
	if err != nil {
		return err
	}

	rendered, err := c.GetReports().Forecast(res, o.Format)
	if err != nil {
		return err
	}
	_, err = out.Write(rendered)
	return err
}

func buildRequest(o Options) (models.ForecastRequest, error) {
	if strings.TrimSpace(o.Budget) == "" {
		return models.ForecastRequest{}, forecasterror.Malformed(opParseFlags, "--budget is required")
	}
	budget, err := decimal.NewFromString(strings.TrimSpace(o.Budget))
	if err != nil {
		return models.ForecastRequest{}, forecasterror.Malformedf(opParseFlags, "--budget: %v", err)
	}

	var entries []models.CurrentMonthEntry
	if o.EntriesFile != "" {
		if err := validation.IsValidPath(o.EntriesFile); err != nil {
			return models.ForecastRequest{}, forecasterror.Wrap(forecasterror.MalformedInput, opParseFlags, "--entries", err)
		}
		f, err := os.Open(o.EntriesFile) // #nosec G304 -- CLI tool reads user-provided files
		if err != nil {
			return models.ForecastRequest{}, fmt.Errorf("error opening entries file: %w", err)
		}
		defer f.Close()
		fromFile, err := importer.ParseEntriesCSV(f)
		if err != nil {
			return models.ForecastRequest{}, forecasterror.Wrap(forecasterror.MalformedInput, opParseFlags, "--entries", err)
		}
		entries = append(entries, fromFile...)
	}
	for _, raw := range o.Entries {
		e, err := parseEntry(raw)
		if err != nil {
			return models.ForecastRequest{}, err
		}
		entries = append(entries, e)
	}

	return models.ForecastRequest{Budget: budget, CurrentMonthTransactions: entries}, nil
}

// parseEntry reads "YYYY-MM-DD=amount".
func parseEntry(raw string) (models.CurrentMonthEntry, error) {
	dateStr, amountStr, ok := strings.Cut(raw, "=")
	if !ok {
		return models.CurrentMonthEntry{}, forecasterror.Malformedf(opParseFlags, "--entry %q: expected YYYY-MM-DD=amount", raw)
	}
	date, err := dateutils.ParseISODate(strings.TrimSpace(dateStr))
	if err != nil {
		return models.CurrentMonthEntry{}, forecasterror.Malformedf(opParseFlags, "--entry %q: %v", raw, err)
	}
	amount, err := importer.ParseAmount(amountStr)
	if err != nil {
		return models.CurrentMonthEntry{}, forecasterror.Malformedf(opParseFlags, "--entry %q: %v", raw, err)
	}
	return models.CurrentMonthEntry{Date: date, Amount: amount}, nil
}

// fileHistory parses history files into an in-memory store and serves it.
func fileHistory(im *importer.Importer, paths []string, userID string, logger logging.Logger) (pipeline.HistoryProvider, error) {
	files, err := importer.CollectFiles(paths)
	if err != nil {
		return nil, err
	}
	mem := store.NewMemoryStore()
	for _, path := range files {
		txs, format, err := im.ParseFile(path, userID)
		if err != nil {
			return nil, forecasterror.Wrap(forecasterror.MalformedInput, opParseFlags, "--history "+path, err)
		}
		if err := mem.InsertBatch(context.Background(), txs); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Debug("Loaded history file",
			logging.Field{Key: logging.FieldFile, Value: path},
			logging.Field{Key: logging.FieldFormat, Value: format},
			logging.Field{Key: logging.FieldCount, Value: len(txs)})
	}
	return store.History{Store: mem}, nil
}
