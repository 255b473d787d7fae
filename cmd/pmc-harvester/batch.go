// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch <keywords-file>",
	Short: "Download articles for every keyword in a CSV or YAML list",
	Long: `Batch reads a keyword list and runs download for each keyword in priority
order (Critical, High, Medium, Low). CSV files need a Keyword column and may
carry Category, Priority, and Expected_Articles; the upper bound of an
Expected_Articles range such as "20-80" sets the per-keyword maximum. YAML
files hold the same fields under a top-level keywords list.

Each keyword runs under its own timeout. Results are written to
download_results_<timestamp>.csv and .yaml in the results directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.BoolP("yes", "y", false, "skip the confirmation prompt")
	f.String("results-dir", "", "directory for results files (default <output-dir>)")
	f.Duration("keyword-timeout", 0, "time limit per keyword (default 10m)")
	f.Duration("pause", 0, "pause between keywords (default 2s)")

	for key, flag := range map[string]string{
		"batch.results_dir":     "results-dir",
		"batch.keyword_timeout": "keyword-timeout",
		"batch.pause":           "pause",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	kws, err := batch.LoadKeywords(args[0])
	if err != nil {
		return err
	}
	if len(kws) == 0 {
		return fmt.Errorf("no keywords in %s", args[0])
	}

	hcfg, err := harvestConfig()
	if err != nil {
		return err
	}
	bcfg := batchConfig()
	if bcfg.ResultsDir == "" {
		bcfg.ResultsDir = hcfg.OutputDir
	}

	fmt.Fprintf(out, "Keywords file: %s\n", args[0])
	fmt.Fprintf(out, "Output directory: %s\n", hcfg.OutputDir)
	fmt.Fprintf(out, "Loaded %d keywords\n", len(kws))
	printDistribution(out, "Priority", batch.CountBy(kws, func(k batch.Keyword) string { return k.Priority }))
	printDistribution(out, "Category", batch.CountBy(kws, func(k batch.Keyword) string { return k.Category }))

	articles, lo, hi := batch.Estimate(kws, bcfg.DefaultMaxResults, bcfg.MaxResultsCap)
	fmt.Fprintf(out, "\nThis will attempt to download ~%d articles\n", articles)
	fmt.Fprintf(out, "Estimated time: %d - %d minutes\n", lo, hi)

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if !confirm(cmd.InOrStdin(), out, "Proceed with batch download? (yes/no): ") {
			fmt.Fprintln(out, "Download cancelled.")
			return nil
		}
	}

	runner := &batch.Runner{
		Harvester: newHarvester(hcfg, out),
		Request:   baseRequest(hcfg),
		Config:    bcfg,
		Out:       out,
		Log:       logger.Named("batch"),
	}
	if store := openLedger(); store != nil {
		defer store.Close()
		runner.Ledger = store
	}

	rep := runner.Run(cmd.Context(), kws)

	csvPath, err := batch.WriteCSV(bcfg.ResultsDir, rep)
	if err != nil {
		logger.Error("could not write results", zap.Error(err))
	}
	if _, err := batch.WriteYAML(bcfg.ResultsDir, rep); err != nil {
		logger.Error("could not write report", zap.Error(err))
	}
	batch.PrintSummary(out, rep, csvPath)
	return cmd.Context().Err()
}

// confirm asks prompt on out and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, "\n"+prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true
	}
	return false
}

func printDistribution(w io.Writer, title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s distribution:\n", title)
	for _, k := range keys {
		label := k
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(w, "  %-30s %d\n", label, counts[k])
	}
}
