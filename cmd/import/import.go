// Package importcmd loads history files into the transaction store
package importcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"smart-budget-planner/cmd/root"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/importer"
	"smart-budget-planner/internal/validation"

	"github.com/spf13/cobra"
)

var userID string

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import [files or directories...]",
	Short: "Import CSV or CAMT.053 history files into the store",
	Long: `Import transaction history for a user into the configured store.

Files ending in .csv are read as CSV with a header line (date, amount and
optionally id, description, type). Files ending in .xml are read as CAMT.053
statements. Directories are searched recursively. Files are processed
concurrently; a file is stored completely or not at all.

Example:
  budget-planner import --user alice statements/ history.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: importFunc,
}

func init() {
	Cmd.Flags().StringVarP(&userID, "user", "u", "", "User the transactions belong to (required)")
	_ = Cmd.MarkFlagRequired("user")
}

func importFunc(cmd *cobra.Command, args []string) error {
	c, err := root.GetContainer(cmd.Context())
	if err != nil {
		return err
	}
	return Run(cmd.Context(), c.GetImporter(), userID, args, cmd.OutOrStdout())
}

// Run imports paths for user and prints one summary line per file.
func Run(ctx context.Context, im *importer.Importer, user string, paths []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if user == "" {
		return forecasterror.Malformed("import", "--user is required")
	}
	for _, p := range paths {
		if err := validation.IsValidPath(p); err != nil {
			return err
		}
	}
	files, err := importer.CollectFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no supported files found")
	}

	results, importErr := im.ImportFiles(ctx, user, files)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	total := 0
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "error: " + r.Err.Error()
		}
		total += r.Imported
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.File, r.Format, r.Imported, status)
	}
	fmt.Fprintf(w, "total\t\t%d\t\n", total)
	if err := w.Flush(); err != nil {
		return err
	}
	return importErr
}
