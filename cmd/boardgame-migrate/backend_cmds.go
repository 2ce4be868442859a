package main

import (
	"fmt"
	"time"

	"github.com/dullg/boardgame-migrate/internal/analyzer"
	"github.com/dullg/boardgame-migrate/internal/connector"
	"github.com/dullg/boardgame-migrate/internal/images"
	"github.com/dullg/boardgame-migrate/internal/importer"
	"github.com/dullg/boardgame-migrate/internal/storage"
	"github.com/dullg/boardgame-migrate/internal/utils"
	"github.com/spf13/cobra"
)

// addDBFlags binds the connection flags; blank values fall back to DB_* variables
func addDBFlags(cmd *cobra.Command, params *connector.ConnectionParams) {
	cmd.Flags().StringVar(&params.Driver, "driver", "", "Database driver: postgres or mysql (default: postgres)")
	cmd.Flags().StringVarP(&params.Host, "host", "H", "", "Database host (default: localhost)")
	cmd.Flags().StringVarP(&params.User, "user", "u", "", "Database user")
	cmd.Flags().StringVarP(&params.Password, "password", "p", "", "Database password")
	cmd.Flags().StringVarP(&params.Database, "database", "d", "", "Database name")
	cmd.Flags().StringVarP(&params.Port, "port", "P", "", "Database port (default: 5432 or 3306)")
	cmd.Flags().StringVar(&params.SSLMode, "sslmode", "", "PostgreSQL sslmode (default: require)")
}

func (a *app) connect(params connector.ConnectionParams) (*connector.DatabaseConnector, error) {
	db := connector.NewDatabaseConnector(params, a.logger)
	if !utils.ValidateConnectionParams(db, a.logger) {
		return nil, fmt.Errorf("invalid database connection parameters")
	}
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// downloadTimeout reads MIGRATE_DOWNLOAD_TIMEOUT in seconds
func downloadTimeout() time.Duration {
	seconds := utils.GetEnvInt("MIGRATE_DOWNLOAD_TIMEOUT", int(images.DownloadTimeout/time.Second))
	if seconds <= 0 {
		return images.DownloadTimeout
	}
	return time.Duration(seconds) * time.Second
}

func (a *app) importCmd() *cobra.Command {
	var (
		params      connector.ConnectionParams
		analyzeOnly bool
		verify      bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the migrated CSV tables into the database in reference order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.plan.Validate(); err != nil {
				return err
			}
			if len(a.plan.Import) == 0 {
				return fmt.Errorf("no import tables listed in the plan (--plan)")
			}

			planAnalyzer := analyzer.NewPlanAnalyzer(a.plan.Import, a.logger)
			ordered, err := planAnalyzer.GetTableInsertionOrder()
			if err != nil {
				return err
			}

			// Print import plan
			utils.PrintImportPlan(planAnalyzer, ordered)

			// If analyze-only mode, exit here
			if analyzeOnly {
				a.logger.Info("Analyze-only mode, exiting without importing data")
				return nil
			}

			db, err := a.connect(params)
			if err != nil {
				return err
			}
			defer db.Disconnect()

			tableImporter := importer.NewTableImporter(db, planAnalyzer, a.logger)
			if err := tableImporter.LoadTables(); err != nil {
				return err
			}

			a.logger.Info("Starting table import...")
			result, err := tableImporter.ImportTables()
			if err != nil {
				return err
			}
			utils.PrintImportSummary(result)

			if verify {
				expected := make(map[string]int, len(result.SuccessfulTables))
				for _, name := range result.SuccessfulTables {
					expected[name] = len(tableImporter.Loaded[name].Rows)
				}
				ok, short := utils.VerifyTablePopulation(db, expected, a.logger)
				utils.PrintVerificationResults(short, expected)
				if !ok {
					return fmt.Errorf("verification failed for %d tables", len(short))
				}
			}

			if len(result.FailedTables) > 0 {
				return fmt.Errorf("%d tables failed to import", len(result.FailedTables))
			}
			return nil
		},
	}

	addDBFlags(cmd, &params)
	cmd.Flags().BoolVarP(&analyzeOnly, "analyze-only", "a", false, "Only print the import order without touching the database")
	cmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify row counts after importing")
	return cmd
}

func (a *app) migrateImagesCmd() *cobra.Command {
	var (
		params connector.ConnectionParams
		target string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "migrate-images",
		Short: "Copy game images into object storage and update their URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			storageCfg := storage.ConfigFromEnv()

			var store storage.ObjectStore
			if !dryRun {
				if !utils.CheckRequiredEnv([]string{"STORAGE_ENDPOINT", "STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY"}, a.logger) {
					return fmt.Errorf("object storage is not configured")
				}
				minioStore, err := storage.NewMinioStore(storageCfg, a.logger)
				if err != nil {
					return err
				}
				store = minioStore
			}

			db, err := a.connect(params)
			if err != nil {
				return err
			}
			defer db.Disconnect()

			migrator := images.NewMigrator(db, store, storageCfg.BaseURL()+"/"+storageCfg.Bucket, a.logger)
			migrator.Table = target
			migrator.HTTPClient.Timeout = downloadTimeout()
			migrator.DryRun = dryRun

			report, err := migrator.Migrate(cmd.Context())
			if err != nil {
				return err
			}

			utils.PrintImageSummary(report, dryRun)
			return nil
		},
	}

	addDBFlags(cmd, &params)
	cmd.Flags().StringVar(&target, "table", "games", "Table holding id, name and image columns")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List images that would be migrated without downloading anything")
	return cmd
}
