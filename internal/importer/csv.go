package importer

import (
	"fmt"
	"io"
	"strings"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/models"

	"github.com/gocarina/gocsv"
)

// csvRow is one line of a history CSV. Only date and amount are required.
type csvRow struct {
	ID          string `csv:"id"`
	Date        string `csv:"date"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
	Type        string `csv:"type"`
}

// ParseCSV reads transactions from CSV with a header line. Columns are
// matched by name: id, date, amount, description, type.
func ParseCSV(r io.Reader) ([]models.Transaction, error) {
	var rows []csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, &FormatError{Format: FormatCSV, Msg: "cannot decode rows", Err: err}
	}

	out := make([]models.Transaction, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // header is line 1
		if strings.TrimSpace(row.Date) == "" && strings.TrimSpace(row.Amount) == "" {
			continue
		}
		ts, _, err := dateutils.ParseDate(row.Date)
		if err != nil {
			return nil, &FormatError{Format: FormatCSV, Msg: fmt.Sprintf("line %d: invalid date", line), Err: err}
		}
		amount, err := ParseAmount(row.Amount)
		if err != nil {
			return nil, &FormatError{Format: FormatCSV, Msg: fmt.Sprintf("line %d: invalid amount", line), Err: err}
		}
		out = append(out, models.Transaction{
			ID:          strings.TrimSpace(row.ID),
			Amount:      amount,
			Timestamp:   ts,
			Description: strings.TrimSpace(row.Description),
			Type:        strings.TrimSpace(row.Type),
		})
	}
	return out, nil
}

// EntryRow is one line of a current-month entries CSV (columns Date, Amount).
type EntryRow struct {
	Date   string `csv:"Date"`
	Amount string `csv:"Amount"`
}

// ParseEntriesCSV reads current-month entries.
func ParseEntriesCSV(r io.Reader) ([]models.CurrentMonthEntry, error) {
	var rows []EntryRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, &FormatError{Format: FormatCSV, Msg: "cannot decode entries", Err: err}
	}
	out := make([]models.CurrentMonthEntry, 0, len(rows))
	for i, row := range rows {
		date, err := dateutils.ParseISODate(row.Date)
		if err != nil {
			return nil, &FormatError{Format: FormatCSV, Msg: fmt.Sprintf("line %d: invalid Date", i+2), Err: err}
		}
		amount, err := ParseAmount(row.Amount)
		if err != nil {
			return nil, &FormatError{Format: FormatCSV, Msg: fmt.Sprintf("line %d: invalid Amount", i+2), Err: err}
		}
		out = append(out, models.CurrentMonthEntry{Date: date, Amount: amount})
	}
	return out, nil
}
