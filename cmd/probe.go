package main

import (
	"context"
	"os"

	"github.com/corex-retail/sales-forecast/internal/probe"
	"github.com/corex-retail/sales-forecast/pkg/logger"
	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	var (
		cfg   probe.Config
		level string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Exercise a running forecast service over HTTP",
		Long: `Probe checks /health, runs /test_prediction, sends concurrent identical
/predict requests and verifies that invalid inputs are rejected with the
expected error codes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
				return err
			}
			if cfg.Verbose {
				level = "debug"
			}
			_ = logger.SetLevelString(level)

			report, err := probe.Run(ctx, cfg)
			if report != nil {
				probe.PrintReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cfg.BaseURL, "url", probe.DefaultBaseURL, "base URL of the service")
	fs.IntVarP(&cfg.Requests, "requests", "n", probe.DefaultRequests, "number of /predict calls")
	fs.IntVarP(&cfg.Workers, "workers", "w", probe.DefaultWorkers, "number of concurrent workers")
	fs.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "HTTP request timeout")
	fs.Float64SliceVar(&cfg.Features, "features", nil, "feature vector sent to /predict (default 12,50000,1,0,6)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every failed request")
	fs.StringVar(&level, "log-level", "info", "log level")
	return cmd
}
