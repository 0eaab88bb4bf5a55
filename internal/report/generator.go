// Package report renders forecast results and transaction lists for the CLI.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Generator renders reports in the supported formats.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a new Generator.
func NewGenerator(logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Generator{logger: logger}
}

type forecastView struct {
	Status     string  `json:"budget_status" yaml:"budget_status"`
	Difference string  `json:"budget_difference" yaml:"budget_difference"`
	Accuracy   float64 `json:"model_accuracy_r_squared" yaml:"model_accuracy_r_squared"`
}

type transactionView struct {
	ID          string `json:"id" yaml:"id" csv:"id"`
	Date        string `json:"timestamp" yaml:"timestamp" csv:"timestamp"`
	Amount      string `json:"amount" yaml:"amount" csv:"amount"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" csv:"description"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" csv:"type"`
}

// Forecast renders a forecast result as text, json or yaml.
func (g *Generator) Forecast(res models.ForecastResult, format string) ([]byte, error) {
	view := forecastView{
		Status:     string(res.Status),
		Difference: res.Difference.String(),
		Accuracy:   res.Accuracy,
	}
	switch strings.ToLower(format) {
	case "", FormatText:
		var buf bytes.Buffer
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Status:\t%s\n", view.Status)
		fmt.Fprintf(w, "Difference:\t%s\n", res.Difference.StringFixed(2))
		fmt.Fprintf(w, "Model R²:\t%.4f\n", view.Accuracy)
		if err := w.Flush(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return g.marshalJSON(view)
	case FormatYAML:
		return g.marshalYAML(view)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// Transactions renders a transaction list as text, json, yaml or csv.
func (g *Generator) Transactions(txs []models.Transaction, format string) ([]byte, error) {
	views := make([]transactionView, len(txs))
	for i, tx := range txs {
		views[i] = transactionView{
			ID:          tx.ID,
			Date:        tx.Timestamp.UTC().Format(time.RFC3339),
			Amount:      tx.Amount.String(),
			Description: tx.Description,
			Type:        tx.Type,
		}
	}

	switch strings.ToLower(format) {
	case "", FormatText:
		var buf bytes.Buffer
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tAMOUNT\tTYPE\tDESCRIPTION")
		for i, v := range views {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dateutils.ToISODate(txs[i].Timestamp.UTC()), txs[i].Amount.StringFixed(2), v.Type, v.Description)
		}
		if err := w.Flush(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return g.marshalJSON(map[string][]transactionView{"transactions": views})
	case FormatYAML:
		return g.marshalYAML(map[string][]transactionView{"transactions": views})
	case FormatCSV:
		out, err := gocsv.MarshalBytes(&views)
		if err != nil {
			g.logger.WithError(err).Error("Failed to marshal CSV report")
			return nil, fmt.Errorf("failed to marshal CSV report: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) marshalJSON(v interface{}) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return append(out, '\n'), nil
}

func (g *Generator) marshalYAML(v interface{}) ([]byte, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return nil, fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return out, nil
}
