package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/domain/entities/importrun"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/infrastructure/persistence"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/modules/voterfile/services"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/composables"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/configuration"
	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		configuration.Use().Unload()
		os.Exit(1)
	}
	configuration.Use().Unload()
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "importer",
		Short:         "Bulk voter registration import and rollback",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(importCmd(), rollbackCmd(), runsCmd(), purgeCmd())
	return cmd
}

// env wires the service graph for one command invocation.
type env struct {
	pool     *pgxpool.Pool
	importer *services.ImportService
	rollback *services.RollbackService
	progress *services.ProgressRegistry
}

func setup(ctx context.Context) (*env, context.Context, error) {
	conf := configuration.Use()
	logger := conf.Logger()

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, ctx, fmt.Errorf("connect to database: %w", err)
	}
	ctx = composables.WithPool(ctx, pool)

	contacts := persistence.NewContactRepository()
	rollbacks := persistence.NewRollbackRepository()
	runs := persistence.NewImportRunRepository()
	bus := eventbus.NewEventPublisher(logger)
	bus.Subscribe(func(ev *services.ImportCompletedEvent) {
		logger.WithFields(logrus.Fields{
			"run_id": ev.Run.ID,
			"phase":  ev.Run.Phase,
		}).Info("import run finished")
	})
	progress := services.NewProgressRegistry(conf.Import.ProgressBuffer)
	rollbackSvc := services.NewRollbackService(contacts, rollbacks, logger)

	return &env{
		pool:     pool,
		importer: services.NewImportService(contacts, rollbacks, runs, rollbackSvc, bus, progress, logger, conf.Import),
		rollback: rollbackSvc,
		progress: progress,
	}, ctx, nil
}

func importCmd() *cobra.Command {
	var (
		file      string
		batchSize int
		dryRun    bool
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a voter registration spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			e, ctx, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			runID := uuid.New()
			events, cancel := e.progress.Subscribe(runID)
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for ev := range events {
					fmt.Printf("chunk %d/%d  processed=%d created=%d updated=%d skipped=%d duplicates=%d errors=%d eta=%s heap=%dMiB\n",
						ev.ChunkIndex, ev.ChunkCount,
						ev.Processed, ev.Created, ev.Updated, ev.Skipped, ev.Duplicates, ev.Errored,
						time.Duration(ev.ETASeconds*float64(time.Second)).Round(time.Second),
						ev.HeapBytes/(1<<20),
					)
				}
			}()

			run, err := e.importer.Import(ctx, services.ImportParams{
				RunID:             runID,
				FileName:          filepath.Base(file),
				Data:              data,
				BatchSize:         batchSize,
				DryRun:            dryRun,
				OverwriteUserData: overwrite,
			})
			wg.Wait()
			if err != nil {
				return err
			}

			printRun(run)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the XLSX voter file")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per chunk (0 = configured default)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and count without writing")
	cmd.Flags().BoolVar(&overwrite, "overwrite-user-data", false, "let the import overwrite user-edited fields")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <rollback-id>",
		Short: "Reverse a completed import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rollbackID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid rollback id: %w", err)
			}

			e, ctx, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			report, err := e.rollback.Rollback(ctx, rollbackID)
			if err != nil {
				return err
			}
			fmt.Printf("reversed=%d deleted=%d restored=%d\n", report.Reversed, report.Deleted, report.Restored)
			if len(report.Unresolved) > 0 {
				fmt.Printf("unresolved entries (retry later): %v\n", report.Unresolved)
			}
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent import runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, ctx, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			runs, err := e.importer.Runs(ctx, limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				printRun(run)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop rollback entries past the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, ctx, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.pool.Close()

			purged, err := e.rollback.PurgeExpired(ctx, configuration.Use().Import.RollbackRetention)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d rollback entries\n", purged)
			return nil
		},
	}
}

func printRun(run importrun.Run) {
	fmt.Printf("run %s  file=%s phase=%s dry_run=%t\n", run.ID, run.FileName, run.Phase, run.DryRun)
	fmt.Printf("  rows=%d processed=%d created=%d updated=%d skipped=%d duplicates=%d errors=%d\n",
		run.TotalRows, run.Processed, run.Created, run.Updated, run.Skipped, run.Duplicates, run.Errored)
	if run.RollbackID != nil {
		fmt.Printf("  rollback id: %s\n", run.RollbackID)
	}
	if run.ErrorMessage != "" {
		fmt.Printf("  error: %s\n", run.ErrorMessage)
	}
}
