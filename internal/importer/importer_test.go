package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1234.56", "1234.56", false},
		{"1,234.56", "1234.56", false},
		{"1.234,56", "1234.56", false},
		{"1'234.56", "1234.56", false},
		{"CHF 12.50", "12.5", false},
		{"-30,25", "-30.25", false},
		{"1,234", "1234", false},
		{"€ 7", "7", false},
		{"", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseCSV(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "history.csv"))
	require.NoError(t, err)
	defer f.Close()

	txs, err := ParseCSV(f)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), txs[0].Timestamp)
	assert.Equal(t, "120.5", txs[0].Amount.String())
	assert.Equal(t, "Groceries", txs[0].Description)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), txs[1].Timestamp)
	assert.Equal(t, "1050", txs[1].Amount.String())
	assert.Equal(t, "-30.25", txs[2].Amount.String())
	assert.Equal(t, "income", txs[2].Type)
}

func TestParseCSV_InvalidRow(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("date,amount\nyesterday,10\n"))
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "line 2")
}

func TestParseEntriesCSV(t *testing.T) {
	entries, err := ParseEntriesCSV(strings.NewReader("Date,Amount\n2024-10-05,300\n2024-10-07,12.5\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, int(entries[0].Date.Month()))
	assert.Equal(t, "12.5", entries[1].Amount.String())

	_, err = ParseEntriesCSV(strings.NewReader("Date,Amount\n05.10.2024,300\n"))
	assert.Error(t, err)
}

func TestParseCAMT(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "statement.xml"))
	require.NoError(t, err)
	defer f.Close()

	txs, err := ParseCAMT(f, CAMTOptions{})
	require.NoError(t, err)
	require.Len(t, txs, 2, "credits are skipped by default")

	assert.Equal(t, "REF-001", txs[0].ID)
	assert.Equal(t, "45.9", txs[0].Amount.String())
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), txs[0].Timestamp)
	assert.Equal(t, "Coop Pronto Lausanne", txs[0].Description)
	assert.Equal(t, "expense", txs[0].Type)

	assert.Equal(t, "", txs[1].ID)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), txs[1].Timestamp)
	assert.Equal(t, "Card fee", txs[1].Description)
}

func TestParseCAMT_IncludeCredits(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "statement.xml"))
	require.NoError(t, err)
	defer f.Close()

	txs, err := ParseCAMT(f, CAMTOptions{IncludeCredits: true})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "-3000", txs[1].Amount.String())
	assert.Equal(t, "income", txs[1].Type)
	assert.Equal(t, "Salary", txs[1].Description)
}

func TestParseCAMT_InvalidDocuments(t *testing.T) {
	_, err := ParseCAMT(strings.NewReader("<not-xml"), CAMTOptions{})
	assert.Error(t, err)

	_, err = ParseCAMT(strings.NewReader("<Document><Other/></Document>"), CAMTOptions{})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FormatCAMT, fe.Format)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("a/b/History.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("statement.xml")
	require.NoError(t, err)
	assert.Equal(t, FormatCAMT, f)

	_, err = DetectFormat("notes.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImporter_ImportFiles(t *testing.T) {
	s := store.NewMemoryStore()
	logger := logging.NewMockLogger()
	im := New(s, logger, WithConcurrency(2))

	paths := []string{
		filepath.Join("testdata", "history.csv"),
		filepath.Join("testdata", "statement.xml"),
		filepath.Join("testdata", "missing.csv"),
	}
	results, err := im.ImportFiles(context.Background(), "alice", paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")

	require.Len(t, results, 3)
	assert.Equal(t, 3, results[0].Imported)
	assert.Equal(t, FormatCSV, results[0].Format)
	assert.Equal(t, 2, results[1].Imported)
	assert.Error(t, results[2].Err)

	txs, err := s.ListByUser(context.Background(), "alice", time.Time{}, time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, txs, 5)
	for _, tx := range txs {
		assert.Equal(t, "alice", tx.UserID)
		assert.NotEmpty(t, tx.ID)
	}
	assert.Len(t, logger.GetEntriesByLevel("INFO"), 2)
}

func TestImporter_ReimportIsRejected(t *testing.T) {
	s := store.NewMemoryStore()
	im := New(s, nil)
	path := filepath.Join("testdata", "history.csv")

	_, err := im.ImportFiles(context.Background(), "alice", []string{path})
	require.NoError(t, err)

	results, err := im.ImportFiles(context.Background(), "alice", []string{path})
	require.Error(t, err)
	assert.ErrorIs(t, results[0].Err, store.ErrDuplicateID)
}

func TestImporter_ParseFileAssignsStableIDs(t *testing.T) {
	im := New(store.NewMemoryStore(), nil)
	path := filepath.Join("testdata", "history.csv")

	a, _, err := im.ParseFile(path, "alice")
	require.NoError(t, err)
	b, _, err := im.ParseFile(path, "alice")
	require.NoError(t, err)
	c, _, err := im.ParseFile(path, "bob")
	require.NoError(t, err)

	assert.Equal(t, a[0].ID, b[0].ID)
	assert.NotEqual(t, a[0].ID, c[0].ID)
	assert.NotEqual(t, a[0].ID, a[1].ID)
}

func TestImporter_SharedStatementImportsPerUser(t *testing.T) {
	s := store.NewMemoryStore()
	im := New(s, nil)
	path := filepath.Join("testdata", "statement.xml")

	for _, user := range []string{"alice", "bob"} {
		results, err := im.ImportFiles(context.Background(), user, []string{path})
		require.NoError(t, err, user)
		assert.Equal(t, 2, results[0].Imported, user)
	}

	alice, _, err := im.ParseFile(path, "alice")
	require.NoError(t, err)
	bob, _, err := im.ParseFile(path, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, "REF-001", alice[0].ID)
	assert.NotEqual(t, alice[0].ID, bob[0].ID)

	again, _, err := im.ParseFile(path, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice[0].ID, again[0].ID)
}

func TestImporter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := New(store.NewMemoryStore(), nil).ImportFiles(ctx, "alice", []string{filepath.Join("testdata", "history.csv")})
	require.Error(t, err)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
	for _, name := range []string{"b.csv", "a.xml", "skip.txt", filepath.Join("sub", "c.csv")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	single := filepath.Join(dir, "skip.txt")

	files, err := CollectFiles([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.xml"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "sub", "c.csv"),
		single,
	}, files)

	_, err = CollectFiles([]string{filepath.Join(dir, "nope")})
	assert.Error(t, err)
}

var _ Sink = (store.TransactionStore)(nil)
