package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `
primary:
  path: data/games.csv
  column: id
dependents:
  - name: rentals
    path: data/rentals.csv
    column: game_id
  - name: reviews
    path: data/reviews.csv
    output: out/reviews.csv
    column: game_id
renumber:
  policy: random
  threshold: 5000
  random_min: 10
  random_max: 99
  seed: 7
import:
  - name: games
    path: out/games.csv
  - name: rentals
    path: out/rentals.csv
    references: [games]
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPlanDefaults(t *testing.T) {
	plan, err := LoadPlan("")
	require.NoError(t, err)

	assert.Equal(t, DefaultColumn, plan.Primary.Column)
	assert.Equal(t, int64(DefaultThreshold), plan.Renumber.Threshold)
	assert.Equal(t, int64(DefaultFloor), plan.Renumber.Floor)
	assert.Equal(t, "sequential", plan.Renumber.Policy)
	assert.Equal(t, DefaultSemester, plan.Semester)
	assert.NoError(t, plan.Validate())
}

func TestLoadPlanFile(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, samplePlan))
	require.NoError(t, err)
	require.NoError(t, plan.Validate())

	assert.Equal(t, "data/games.csv", plan.Primary.Path)
	require.Len(t, plan.Dependents, 2)
	assert.Equal(t, "data/rentals.csv", plan.Dependents[0].OutputPath())
	assert.Equal(t, "out/reviews.csv", plan.Dependents[1].OutputPath())
	assert.Equal(t, int64(5000), plan.Renumber.Threshold)
	// unset keys keep their defaults
	assert.Equal(t, int64(DefaultFloor), plan.Renumber.Floor)
	require.Len(t, plan.Import, 2)
	assert.Equal(t, []string{"games"}, plan.Import[1].References)

	opts, err := plan.RemapOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyRandom, opts.Policy)
	assert.Equal(t, int64(10), opts.RandomMin)
	assert.Equal(t, int64(99), opts.RandomMax)
}

func TestLoadPlanMissingFile(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPlanEnvironmentOverrides(t *testing.T) {
	t.Setenv("MIGRATE_POLICY", "none")
	t.Setenv("MIGRATE_SEED", "42")
	t.Setenv("MIGRATE_SEMESTER", "2025-2")

	plan, err := LoadPlan(writePlan(t, samplePlan))
	require.NoError(t, err)
	assert.Equal(t, "none", plan.Renumber.Policy)
	assert.Equal(t, int64(42), plan.Renumber.Seed)
	assert.Equal(t, "2025-2", plan.Semester)

	t.Setenv("MIGRATE_SEED", "forty-two")
	_, err = LoadPlan("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{"unknown policy", func(p *Plan) { p.Renumber.Policy = "shuffle" }},
		{"zero threshold", func(p *Plan) { p.Renumber.Threshold = 0 }},
		{"negative floor", func(p *Plan) { p.Renumber.Floor = -1 }},
		{"inverted random range", func(p *Plan) {
			p.Renumber.Policy = "random"
			p.Renumber.RandomMin, p.Renumber.RandomMax = 50, 10
		}},
		{"zero suffix", func(p *Plan) { p.Renumber.SuffixLen = 0 }},
		{"dependent without column", func(p *Plan) {
			p.Dependents = []models.DependentTable{{Path: "rentals.csv"}}
		}},
		{"import without path", func(p *Plan) {
			p.Import = []models.ImportTable{{Name: "games"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Default()
			tt.mutate(plan)
			assert.Error(t, plan.Validate())
		})
	}
}
