package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dullg/boardgame-migrate/internal/ingest"
	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/internal/utils"
	"github.com/spf13/cobra"
)

func requireInput(path string) error {
	if path == "" {
		return fmt.Errorf("input file must be provided with --input")
	}
	return nil
}

func (a *app) logsCmd() *cobra.Command {
	var (
		input      string
		rentalsOut string
		statsOut   string
		borrowers  string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Convert the action log into rental history and per-game view counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInput(input); err != nil {
				return err
			}
			logs, err := table.Load(input, "logs")
			if err != nil {
				return err
			}

			var resolver ingest.BorrowerResolver
			if borrowers != "" {
				mapping, err := table.Load(borrowers, "borrowers")
				if err != nil {
					return err
				}
				if resolver, err = ingest.LoadMapResolver(mapping, "raw", "user_id"); err != nil {
					return fmt.Errorf("borrower mapping: %w", err)
				}
			}

			processor := ingest.NewLogProcessor(resolver, a.logger)
			processor.Status = status
			result, err := processor.Process(logs)
			if err != nil {
				return err
			}

			if err := table.SaveAll([]table.Output{
				{Path: rentalsOut, Table: result.Rentals},
				{Path: statsOut, Table: result.Stats},
			}); err != nil {
				return err
			}
			a.logger.Infof("Wrote %d rentals to %s and %d view counts to %s",
				len(result.Rentals.Rows), rentalsOut, len(result.Stats.Rows), statsOut)

			utils.PrintIngestSummary("logs", result.Report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Action log CSV")
	cmd.Flags().StringVar(&rentalsOut, "rentals-out", "rentals_clean.csv", "Rental history output")
	cmd.Flags().StringVar(&statsOut, "stats-out", "history_stats.csv", "View count output")
	cmd.Flags().StringVar(&borrowers, "borrowers", "", "Optional CSV mapping raw actors to user ids (columns raw,user_id)")
	cmd.Flags().StringVar(&status, "status", "RETURNED", "Status written on every rental")
	return cmd
}

func (a *app) reviewsCmd() *cobra.Command {
	var (
		input  string
		output string
		author string
	)

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Reshape the legacy reviews sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInput(input); err != nil {
				return err
			}
			reviews, err := table.Load(input, "reviews")
			if err != nil {
				return err
			}
			table.WithHeader(reviews, ingest.ReviewExportColumns)

			out, report, err := ingest.NewReviewFilter(author, a.logger).Process(reviews)
			if err != nil {
				return err
			}
			if err := table.Save(output, out); err != nil {
				return err
			}

			utils.PrintIngestSummary("reviews", report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Legacy reviews CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "reviews_clean.csv", "Output CSV")
	cmd.Flags().StringVar(&author, "author", "", "Keep only reviews written by this author")
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	var (
		input    string
		output   string
		semester string
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Build the allowed-users table from the legacy users sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInput(input); err != nil {
				return err
			}
			if cmd.Flags().Changed("semester") {
				a.plan.Semester = semester
			}
			users, err := table.Load(input, "users")
			if err != nil {
				return err
			}

			out, report, err := ingest.AllowedUsers(users, a.plan.Semester)
			if err != nil {
				return err
			}
			if err := table.Save(output, out); err != nil {
				return err
			}

			utils.PrintIngestSummary("users", report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Legacy users CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "allowed_users.csv", "Output CSV")
	cmd.Flags().StringVar(&semester, "semester", ingest.DefaultSemester, "Semester stamped on every user")
	return cmd
}

func (a *app) cleanGamesCmd() *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "clean-games",
		Short: "Project the games sheet onto the games table columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInput(input); err != nil {
				return err
			}
			raw, err := table.Load(input, "games")
			if err != nil {
				return err
			}

			out, report := ingest.CleanGames(raw)
			if err := table.Save(output, out); err != nil {
				return err
			}

			utils.PrintIngestSummary("games", report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Games CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "games_clean.csv", "Output CSV")
	return cmd
}

func (a *app) thumbnailSQLCmd() *cobra.Command {
	var (
		input  string
		output string
		target string
	)

	cmd := &cobra.Command{
		Use:   "thumbnail-sql",
		Short: "Generate an SQL script setting every game's image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireInput(input); err != nil {
				return err
			}
			games, err := table.Load(input, "games")
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			report, err := ingest.ThumbnailSQL(&buf, games, target)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
					return err
				}
			} else {
				if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
					return fmt.Errorf("writing %s: %w", output, err)
				}
				a.logger.Infof("Wrote %d UPDATE statements to %s", report.Written, output)
				utils.PrintIngestSummary("thumbnail sql", report)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Games CSV with id and image columns")
	cmd.Flags().StringVarP(&output, "output", "o", "update_thumbnails.sql", "Output SQL file (- for stdout)")
	cmd.Flags().StringVar(&target, "table", "public.games", "Table the statements update")
	return cmd
}
