// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/tracksampler/config"
	"github.com/cardinalhq/tracksampler/internal/sampler"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Extract a bounded flight sample from a CSV file collection",
		RunE: func(c *cobra.Command, _ []string) error {
			return runSample(c)
		},
	}

	rootCmd.AddCommand(cmd)

	cmd.Flags().String("input", "", "Glob pattern selecting input CSV files")
	cmd.Flags().StringSlice("types", nil, "Aircraft types to sample")
	cmd.Flags().Int("flights-per-type", 0, "Distinct flights to keep per type")
	cmd.Flags().Int("chunk-size", 0, "Rows to read per chunk")
	cmd.Flags().String("output", "", "Output CSV path (empty disables persistence)")
}

// runSample merges flags over the loaded configuration and runs the
// sampler. Flags win only when explicitly set.
func runSample(c *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := c.Flags()
	if flags.Changed("input") {
		cfg.Sample.Pattern, _ = flags.GetString("input")
	}
	if flags.Changed("types") {
		cfg.Sample.TargetTypes, _ = flags.GetStringSlice("types")
	}
	if flags.Changed("flights-per-type") {
		cfg.Sample.FlightsPerType, _ = flags.GetInt("flights-per-type")
	}
	if flags.Changed("chunk-size") {
		cfg.Sample.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("output") {
		cfg.Sample.OutputPath, _ = flags.GetString("output")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := sampler.New(cfg.Sample).Run(ctx)
	if err != nil {
		return err
	}

	if result.Empty() {
		slog.Info("Run produced no rows")
		return nil
	}
	slog.Info("Run complete",
		slog.Int("rows", len(result.Rows)),
		slog.Int("files", result.FileCount))
	return nil
}
