// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pmc-harvester/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [keyword...]",
	Short: "Show recorded download runs",
	Long: `History lists runs recorded in the ledger, newest first. With a keyword
it shows only that keyword's runs; with --batch it shows one batch.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to show (0 for all)")
	historyCmd.Flags().String("batch", "", "show the runs of one batch ID")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	batchID, _ := cmd.Flags().GetString("batch")
	asJSON, _ := cmd.Flags().GetBool("json")

	keyword := strings.TrimSpace(strings.Join(args, " "))
	runs, err := loadRuns(cmd.Context(), ledgerPath(), batchID, keyword, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	printRuns(out, runs)
	return nil
}

// loadRuns reads runs from the ledger at path. A missing ledger yields no
// runs and is not created.
func loadRuns(ctx context.Context, path, batchID, keyword string, limit int) ([]ledger.Run, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return []ledger.Run{}, nil
	}
	store, err := ledger.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var runs []ledger.Run
	switch {
	case batchID != "":
		runs, err = store.Batch(ctx, batchID)
	case keyword != "":
		runs, err = store.History(ctx, keyword, limit)
	default:
		runs, err = store.Recent(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	return runs, nil
}

func printRuns(w io.Writer, runs []ledger.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tKEYWORD\tFOUND\tREQ\tOK\tSKIP\tUNAVAIL\tERR\tEXIT\tSECONDS")
	for _, r := range runs {
		s := r.Stats
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04"), s.Keyword, s.TotalFound,
			s.Requested, s.Successful, s.Skipped, s.Unavailable, s.Errors,
			r.ExitCode, s.DurationSeconds())
	}
	tw.Flush()
}
