package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dullg/boardgame-migrate/internal/config"
	"github.com/dullg/boardgame-migrate/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand
type app struct {
	logLevel string
	envFile  string
	planPath string

	logger *logrus.Logger
	plan   *config.Plan
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "boardgame-migrate",
		Short: "Migrate a board game rental spreadsheet export into a relational backend",
		Long: `Board Game Migrate

One-shot tools that reconcile identifiers in a legacy spreadsheet export,
carry the new identifiers into every table that references them, reshape
the logs, reviews, users and games sheets and load the result into
PostgreSQL or MySQL with images moved to object storage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			a.logger = utils.SetupLogging(a.logLevel)
			runID := utils.AttachRunID(a.logger)
			a.logger.Debugf("Starting %s (run %s)", cmd.Name(), runID)

			// Load environment variables
			utils.LoadEnvironmentVariables(a.envFile, a.logger)

			plan, err := config.LoadPlan(a.planPath)
			if err != nil {
				return err
			}
			a.plan = plan
			return nil
		},
	}

	// Define flags
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&a.envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVar(&a.planPath, "plan", "", "Path to a YAML migration plan")

	rootCmd.AddCommand(
		a.renumberCmd(),
		a.syncIDsCmd(),
		a.logsCmd(),
		a.reviewsCmd(),
		a.usersCmd(),
		a.cleanGamesCmd(),
		a.thumbnailSQLCmd(),
		a.importCmd(),
		a.migrateImagesCmd(),
		a.sampleCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}
