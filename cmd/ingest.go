package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgiosbirmpakos/derbychat/internal/app"
	"github.com/georgiosbirmpakos/derbychat/internal/config"
	"github.com/georgiosbirmpakos/derbychat/internal/ingest"
)

var ingestCron string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Refresh the knowledge store from the configured news pages",
	Long: `ingest runs one scrape-and-index cycle against the configured source
URLs and exits. With --cron it instead keeps running and refreshes on the
given schedule until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context())
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCron, "cron", "", `cron schedule (e.g. "@hourly"); overrides the ingest.cron config key`)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := initLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	spec := ingestCron
	if spec == "" {
		spec = cfg.Ingest.Cron
	}
	if spec != "" {
		scheduler := ingest.NewScheduler(a.Ingester, logger)
		if err := scheduler.Start(ctx, spec); err != nil {
			return fmt.Errorf("starting refresh scheduler: %w", err)
		}
		defer scheduler.Stop()

		<-ctx.Done()
		return nil
	}

	report, err := a.Ingester.Run(ctx)
	if err != nil {
		return fmt.Errorf("refresh cycle failed: %w", err)
	}

	logger.Info("refresh cycle complete",
		"urls_fetched", report.URLsFetched,
		"docs_kept", report.DocsKept,
		"chunks_written", report.ChunksWritten,
		"duration", report.Duration,
	)
	return nil
}
