package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/integration"
)

var (
	refreshTimeout time.Duration
	refreshTop     int
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the risk dataset once and print a summary",
	RunE:  runRefresh,
}

func init() {
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 2*time.Minute, "Fetch timeout including retries")
	refreshCmd.Flags().IntVar(&refreshTop, "top", 5, "Number of hotspots to print")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	fetcher := integration.NewRiskDataFetcher(cfg.RiskDataURL, nil, logger)
	points, err := fetcher.FetchRiskData(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh risk data: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fetched %d risk points from %s\n\n", len(points), fetcher.SourceURL())
	for _, f := range entities.RiskFactors {
		hm := integration.BuildHeatmap(points, f)
		fmt.Fprintf(out, "%-15s min %.3f  max %.3f\n", f.Label(), hm.MinValue, hm.MaxValue)
	}

	fmt.Fprintf(out, "\nTop %d overall risk hotspots:\n", refreshTop)
	for i, p := range integration.Hotspots(points, entities.FactorOverall, refreshTop) {
		fmt.Fprintf(out, "%2d. %.4f, %.4f  %.3f\n", i+1, p.Latitude, p.Longitude, p.TotalRisk)
	}
	return nil
}
