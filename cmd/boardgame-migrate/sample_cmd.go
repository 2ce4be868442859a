package main

import (
	"github.com/dullg/boardgame-migrate/internal/generator"
	"github.com/spf13/cobra"
)

func (a *app) sampleCmd() *cobra.Command {
	var (
		outDir string
		seed   int64
		opts   = generator.DefaultOptions()
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic legacy export for dry runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dg := generator.NewDataGenerator(generator.NewFaker(seed), opts, a.logger)
			sample := dg.Generate()
			if err := sample.Save(outDir); err != nil {
				return err
			}
			a.logger.Infof("Sample export written to %s", outDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "sample", "Directory to write the export into")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0: time-seeded)")
	cmd.Flags().IntVar(&opts.Games, "games", opts.Games, "Number of games")
	cmd.Flags().IntVar(&opts.Rentals, "rentals", opts.Rentals, "Number of rentals")
	cmd.Flags().IntVar(&opts.Reviews, "reviews", opts.Reviews, "Number of reviews")
	cmd.Flags().IntVar(&opts.Logs, "logs", opts.Logs, "Number of action log rows")
	cmd.Flags().IntVar(&opts.Users, "users", opts.Users, "Number of users")
	return cmd
}
