package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dullg/boardgame-migrate/internal/reconcile"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither the plan file nor a flag sets a value
const (
	DefaultColumn    = "id"
	DefaultThreshold = 10000
	DefaultFloor     = 2000
	DefaultRandomMin = 100000
	DefaultRandomMax = 999999999999
	DefaultSemester  = "2025-1"
)

// Plan describes one migration: the primary table, the tables that reference
// it, how identifiers are renumbered and which tables get imported
type Plan struct {
	Primary    PrimaryConfig           `yaml:"primary"`
	Dependents []models.DependentTable `yaml:"dependents"`
	Renumber   RenumberConfig          `yaml:"renumber"`
	Import     []models.ImportTable    `yaml:"import"`
	Semester   string                  `yaml:"semester"`
}

// PrimaryConfig locates the primary table and its key column
type PrimaryConfig struct {
	Path   string `yaml:"path"`
	Output string `yaml:"output"`
	Column string `yaml:"column"`
}

// RenumberConfig holds the identifier policy settings
type RenumberConfig struct {
	Policy      string `yaml:"policy"`
	Threshold   int64  `yaml:"threshold"`
	Floor       int64  `yaml:"floor"`
	RandomMin   int64  `yaml:"random_min"`
	RandomMax   int64  `yaml:"random_max"`
	Seed        int64  `yaml:"seed"`
	RenumberAll bool   `yaml:"renumber_all"`
	SuffixLen   int    `yaml:"suffix_len"`
}

// Default returns a plan holding only default values
func Default() *Plan {
	return &Plan{
		Primary: PrimaryConfig{Column: DefaultColumn},
		Renumber: RenumberConfig{
			Policy:    models.PolicySequential.String(),
			Threshold: DefaultThreshold,
			Floor:     DefaultFloor,
			RandomMin: DefaultRandomMin,
			RandomMax: DefaultRandomMax,
			SuffixLen: reconcile.DefaultSuffixLen,
		},
		Semester: DefaultSemester,
	}
}

// LoadPlan reads a YAML plan on top of the defaults. An empty path returns the
// defaults; a path that does not exist is an error.
func LoadPlan(path string) (*Plan, error) {
	plan := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan file: %w", err)
		}
		if err := yaml.Unmarshal(data, plan); err != nil {
			return nil, fmt.Errorf("failed to parse plan file: %w", err)
		}
	}

	if err := loadFromEnvironment(plan); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return plan, nil
}

// loadFromEnvironment applies MIGRATE_* overrides
func loadFromEnvironment(plan *Plan) error {
	if policy := os.Getenv("MIGRATE_POLICY"); policy != "" {
		plan.Renumber.Policy = policy
	}
	if seed := os.Getenv("MIGRATE_SEED"); seed != "" {
		n, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("MIGRATE_SEED: %w", err)
		}
		plan.Renumber.Seed = n
	}
	if semester := os.Getenv("MIGRATE_SEMESTER"); semester != "" {
		plan.Semester = semester
	}
	return nil
}

// Validate checks that the plan can drive a run
func (p *Plan) Validate() error {
	policy, err := models.ParsePolicy(p.Renumber.Policy)
	if err != nil {
		return err
	}
	if p.Renumber.Threshold <= 0 {
		return errors.New("renumber threshold must be positive")
	}
	if p.Renumber.Floor < 0 {
		return errors.New("renumber floor must not be negative")
	}
	if policy == models.PolicyRandom {
		if p.Renumber.RandomMin < 0 || p.Renumber.RandomMin > p.Renumber.RandomMax {
			return fmt.Errorf("invalid random range %d..%d", p.Renumber.RandomMin, p.Renumber.RandomMax)
		}
	}
	if p.Renumber.SuffixLen <= 0 {
		return errors.New("suffix length must be positive")
	}
	for i, dep := range p.Dependents {
		if dep.Path == "" || dep.Column == "" {
			return fmt.Errorf("dependent table %d needs both path and column", i+1)
		}
	}
	for i, t := range p.Import {
		if t.Name == "" || t.Path == "" {
			return fmt.Errorf("import table %d needs both name and path", i+1)
		}
	}
	return nil
}

// RemapOptions converts the plan into renumbering options
func (p *Plan) RemapOptions(drawer reconcile.Drawer) (reconcile.Options, error) {
	policy, err := models.ParsePolicy(p.Renumber.Policy)
	if err != nil {
		return reconcile.Options{}, err
	}
	return reconcile.Options{
		Column:      p.Primary.Column,
		Threshold:   p.Renumber.Threshold,
		Floor:       p.Renumber.Floor,
		Policy:      policy,
		RandomMin:   p.Renumber.RandomMin,
		RandomMax:   p.Renumber.RandomMax,
		Drawer:      drawer,
		RenumberAll: p.Renumber.RenumberAll,
	}, nil
}
