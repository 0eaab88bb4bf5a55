// Package transactions lists stored transactions from the command line
package transactions

import (
	"context"
	"io"

	"smart-budget-planner/cmd/root"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/report"
	txservice "smart-budget-planner/internal/transactions"
	"smart-budget-planner/internal/validation"

	"github.com/spf13/cobra"
)

var (
	userID string
	from   string
	to     string
)

// Cmd represents the transactions command
var Cmd = &cobra.Command{
	Use:   "transactions",
	Short: "List a user's transactions in a date range",
	Long: `List a user's stored transactions between two dates, both inclusive.

Example:
  budget-planner transactions --user alice --from 2024-01-01 --to 2024-03-31 -f csv`,
	RunE: transactionsFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "User whose transactions are listed (required)")
	Cmd.Flags().StringVar(&from, "from", "", "First day, YYYY-MM-DD (required)")
	Cmd.Flags().StringVar(&to, "to", "", "Last day, YYYY-MM-DD (required)")
	_ = Cmd.MarkFlagRequired("user")
}

func transactionsFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer(cmd.Context())
	if err != nil {
		return err
	}
	return Run(cmd.Context(), c.GetTransactions(), c.GetReports(), userID, from, to, root.SharedFlags.Format, cmd.OutOrStdout())
}

// Run lists and renders the user's transactions.
func Run(ctx context.Context, svc *txservice.Service, gen *report.Generator, user, fromStr, toStr, format string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validation.IsValidOutputFormat(format, report.FormatText, report.FormatJSON, report.FormatYAML, report.FormatCSV); err != nil {
		return forecasterror.Wrap(forecasterror.MalformedInput, "list transactions", "--format", err)
	}
	txs, err := svc.List(ctx, user, fromStr, toStr)
	if err != nil {
		return err
	}
	rendered, err := gen.Transactions(txs, format)
	if err != nil {
		return err
	}
	_, err = out.Write(rendered)
	return err
}
