package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dullg/boardgame-migrate/internal/generator"
	"github.com/dullg/boardgame-migrate/internal/reconcile"
	"github.com/dullg/boardgame-migrate/internal/utils"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/spf13/cobra"
)

var columnName = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// parseDependent reads "path:column[:output]", naming the table after its file.
// The column is the first colon-delimited field that is a plain identifier, so
// paths may carry drive letters.
func parseDependent(value string) (models.DependentTable, error) {
	invalid := fmt.Errorf("invalid dependent %q, want path:column[:output]", value)
	for i := 1; i < len(value); i++ {
		if value[i] != ':' {
			continue
		}
		rest := value[i+1:]
		column, output, hasOutput := strings.Cut(rest, ":")
		if !columnName.MatchString(column) {
			continue
		}
		if hasOutput && output == "" {
			return models.DependentTable{}, invalid
		}
		path := value[:i]
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return models.DependentTable{Name: name, Path: path, Column: column, Output: output}, nil
	}
	return models.DependentTable{}, invalid
}

// dependentsFromFlags replaces the plan's dependents when any were given on
// the command line
func (a *app) dependentsFromFlags(specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	deps := make([]models.DependentTable, 0, len(specs))
	for _, s := range specs {
		dep, err := parseDependent(s)
		if err != nil {
			return err
		}
		deps = append(deps, dep)
	}
	a.plan.Dependents = deps
	return nil
}

func (a *app) renumberCmd() *cobra.Command {
	var (
		primary     string
		output      string
		column      string
		dependents  []string
		policy      string
		threshold   int64
		floor       int64
		randomMin   int64
		randomMax   int64
		seed        int64
		renumberAll bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "renumber",
		Short: "Renumber malformed primary identifiers and propagate them to dependent tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			plan := a.plan
			if flags.Changed("primary") {
				plan.Primary.Path = primary
			}
			if flags.Changed("output") {
				plan.Primary.Output = output
			}
			if flags.Changed("column") {
				plan.Primary.Column = column
			}
			if flags.Changed("policy") {
				plan.Renumber.Policy = policy
			}
			if flags.Changed("threshold") {
				plan.Renumber.Threshold = threshold
			}
			if flags.Changed("floor") {
				plan.Renumber.Floor = floor
			}
			if flags.Changed("random-min") {
				plan.Renumber.RandomMin = randomMin
			}
			if flags.Changed("random-max") {
				plan.Renumber.RandomMax = randomMax
			}
			if flags.Changed("seed") {
				plan.Renumber.Seed = seed
			}
			if flags.Changed("renumber-all") {
				plan.Renumber.RenumberAll = renumberAll
			}
			if err := a.dependentsFromFlags(dependents); err != nil {
				return err
			}
			if plan.Primary.Path == "" {
				return fmt.Errorf("primary table path must be provided with --primary or in the plan")
			}
			if err := plan.Validate(); err != nil {
				return err
			}

			opts, err := plan.RemapOptions(generator.NewFaker(plan.Renumber.Seed))
			if err != nil {
				return err
			}

			result, err := reconcile.NewPipeline(a.logger).Renumber(reconcile.RenumberJob{
				PrimaryPath:   plan.Primary.Path,
				PrimaryOutput: plan.Primary.Output,
				Dependents:    plan.Dependents,
				Options:       opts,
				DryRun:        dryRun,
			})
			if err != nil {
				return err
			}

			utils.PrintRenumberSummary(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&primary, "primary", "p", "", "Primary table CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the primary table (default: overwrite input)")
	cmd.Flags().StringVarP(&column, "column", "c", "id", "Primary key column")
	cmd.Flags().StringArrayVarP(&dependents, "dependent", "d", nil, "Dependent table as path:column[:output] (repeatable)")
	cmd.Flags().StringVar(&policy, "policy", "sequential", "Identifier policy (sequential, random, none)")
	cmd.Flags().Int64Var(&threshold, "threshold", 10000, "Identifiers at or above this value are malformed")
	cmd.Flags().Int64Var(&floor, "floor", 2000, "Lowest identifier the sequential policy assigns")
	cmd.Flags().Int64Var(&randomMin, "random-min", 100000, "Lower bound of the random policy range")
	cmd.Flags().Int64Var(&randomMax, "random-max", 999999999999, "Upper bound of the random policy range")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the random policy (0: time-seeded)")
	cmd.Flags().BoolVar(&renumberAll, "renumber-all", false, "Renumber every row, not only malformed ones")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report without writing files")
	return cmd
}

func (a *app) syncIDsCmd() *cobra.Command {
	var (
		primary    string
		column     string
		dependents []string
		suffixLen  int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "sync-ids",
		Short: "Repair truncated foreign keys against the primary table",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			plan := a.plan
			if flags.Changed("primary") {
				plan.Primary.Path = primary
			}
			if flags.Changed("column") {
				plan.Primary.Column = column
			}
			if flags.Changed("suffix-len") {
				plan.Renumber.SuffixLen = suffixLen
			}
			if err := a.dependentsFromFlags(dependents); err != nil {
				return err
			}
			if plan.Primary.Path == "" {
				return fmt.Errorf("primary table path must be provided with --primary or in the plan")
			}
			if err := plan.Validate(); err != nil {
				return err
			}

			reports, err := reconcile.NewPipeline(a.logger).SyncIDs(reconcile.SyncJob{
				PrimaryPath:   plan.Primary.Path,
				PrimaryColumn: plan.Primary.Column,
				Dependents:    plan.Dependents,
				SuffixLen:     plan.Renumber.SuffixLen,
				DryRun:        dryRun,
			})
			if err != nil {
				return err
			}

			utils.PrintRepairSummary(reports)
			return nil
		},
	}

	cmd.Flags().StringVarP(&primary, "primary", "p", "", "Primary table CSV")
	cmd.Flags().StringVarP(&column, "column", "c", "id", "Primary key column")
	cmd.Flags().StringArrayVarP(&dependents, "dependent", "d", nil, "Dependent table as path:column[:output] (repeatable)")
	cmd.Flags().IntVar(&suffixLen, "suffix-len", reconcile.DefaultSuffixLen, "Trailing characters matched when repairing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing files")
	return cmd
}
