package main

import (
	"context"
	"fmt"
	"os"

	app "github.com/corex-retail/sales-forecast/internal/app"
	"github.com/corex-retail/sales-forecast/internal/domain/types"
	"github.com/corex-retail/sales-forecast/pkg/logger"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the model and run the built-in fixtures",
		Long: `Load the configured model artifact exactly as the server would and run
the three built-in fixture vectors through it. Exits non-zero when the
model cannot be loaded or no fixture succeeds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, &flags)
		},
	}
	addConfigFlags(cmd, &flags)
	return cmd
}

func runCheck(cmd *cobra.Command, f *serveFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(ctx, cmd, f)
	if err != nil {
		return err
	}
	// Logs go to stderr so the report on stdout stays readable.
	if err := initLogging(cfg, logger.WithWriter(os.Stderr)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc := app.New(
		app.WithLogger(logger.Named("check")),
		app.WithModelPath(cfg.ModelPath),
		app.WithModelFormat(cfg.ModelFormat),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:   %s (%s)\n", cfg.ModelPath, cfg.ModelFormat)
	if err := svc.LoadError(); err != nil {
		fmt.Fprintf(out, "  ✗  %v\n", err)
		return fmt.Errorf("model check failed: %w", err)
	}

	report, err := svc.TestPredictions(ctx)
	if err != nil {
		return fmt.Errorf("model check failed: %w", err)
	}
	printSelfTest(cmd, report)
	if !report.ModelWorking {
		return fmt.Errorf("model check failed: no fixture succeeded")
	}
	return nil
}

func printSelfTest(cmd *cobra.Command, report types.SelfTestReport) {
	out := cmd.OutOrStdout()
	for _, r := range report.Results {
		if r.Status == types.StatusSuccess && r.Prediction != nil {
			fmt.Fprintf(out, "  ✓  %v -> %.4f\n", r.Input, *r.Prediction)
		} else {
			fmt.Fprintf(out, "  ✗  %v -> %s\n", r.Input, r.Error)
		}
	}
	fmt.Fprintf(out, "Success: %s\n", report.SuccessRate)
}
