// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pmc-harvester/internal/harvest"
	"github.com/pdiddy/pmc-harvester/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download <keyword...>",
	Short: "Search PMC for a keyword and download the matching articles",
	Long: `Download searches PubMed Central for the keyword (all arguments joined by
spaces) and saves each article to <output-dir>/<keyword-slug>/PMC<id>.<ext>.
Articles already present are skipped without a network request.

Exit status: 0 when new articles were saved or everything was already
present, 1 when the search found nothing, 2 when every attempted download
failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().IntP("max-results", "n", 0, "maximum articles to download (default 100)")
	_ = viper.BindPFlag("max_results", downloadCmd.Flags().Lookup("max-results"))

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	keyword := strings.TrimSpace(strings.Join(args, " "))

	cfg, err := harvestConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	h := newHarvester(cfg, out)
	req := baseRequest(cfg)
	req.Keyword = keyword

	stats := h.Run(cmd.Context(), req)
	harvest.FormatSummary(out, stats)

	if store := openLedger(); store != nil {
		if _, err := store.Record(context.WithoutCancel(cmd.Context()), "", stats); err != nil {
			logger.Warn("could not record run", zap.Error(err))
		}
		store.Close()
	}

	if code := stats.ExitCode(); code != types.ExitOK {
		return exitError{code: code}
	}
	return nil
}
