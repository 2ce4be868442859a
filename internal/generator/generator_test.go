package generator

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dullg/boardgame-migrate/internal/reconcile"
	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/internal/timeparse"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func newTestGenerator(seed int64) *DataGenerator {
	return NewDataGenerator(NewFaker(seed), DefaultOptions(), createTestLogger())
}

func TestGenerateShape(t *testing.T) {
	opts := DefaultOptions()
	sample := newTestGenerator(7).Generate()

	assert.Len(t, sample.Games.Rows, opts.Games)
	assert.Len(t, sample.Rentals.Rows, opts.Rentals)
	assert.Len(t, sample.Reviews.Rows, opts.Reviews)
	assert.Len(t, sample.Logs.Rows, opts.Logs)
	assert.Len(t, sample.Users.Rows, opts.Users)

	seen := make(map[string]bool)
	var small, long int
	for _, id := range sample.Games.Column(0) {
		assert.False(t, seen[id], "duplicate game id %s", id)
		seen[id] = true
		n, err := strconv.ParseInt(id, 10, 64)
		require.NoError(t, err)
		if n < 10000 {
			small++
		} else {
			long++
		}
	}
	assert.Equal(t, opts.Games/2, small)
	assert.Equal(t, opts.Games/2, long)
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a := newTestGenerator(42).Generate()
	b := newTestGenerator(42).Generate()
	assert.Equal(t, a.Games.Rows, b.Games.Rows)
	assert.Equal(t, a.Logs.Rows, b.Logs.Rows)
}

func TestGenerateTimestamps(t *testing.T) {
	sample := newTestGenerator(3).Generate()
	col := sample.Logs.Index("timestamp")
	require.GreaterOrEqual(t, col, 0)

	broken := 0
	for i := range sample.Logs.Rows {
		if _, ok := timeparse.ISO(sample.Logs.Get(i, col)); !ok {
			broken++
		}
	}
	assert.Equal(t, len(sample.Logs.Rows)/20, broken)

	borrowed := sample.Rentals.Index("borrowed_at")
	for i := range sample.Rentals.Rows {
		_, ok := timeparse.ISO(sample.Rentals.Get(i, borrowed))
		assert.True(t, ok, "rental row %d has an unparseable timestamp", i)
	}
}

// A generated export goes through renumbering and truncation recovery and
// ends with every rental pointing at an existing game.
func TestSampleRoundTripThroughPipeline(t *testing.T) {
	dir := t.TempDir()
	sample := newTestGenerator(11).Generate()
	require.NoError(t, sample.Save(dir))

	gamesPath := filepath.Join(dir, GamesFile)
	rentals := models.DependentTable{Name: "rentals", Path: filepath.Join(dir, RentalsFile), Column: "game_id"}
	reviews := models.DependentTable{Name: "reviews", Path: filepath.Join(dir, ReviewsFile), Column: "game_id"}

	pipeline := reconcile.NewPipeline(createTestLogger())
	result, err := pipeline.Renumber(reconcile.RenumberJob{
		PrimaryPath: gamesPath,
		Dependents:  []models.DependentTable{rentals, reviews},
		Options: reconcile.Options{
			Column:    "id",
			Threshold: 10000,
			Floor:     2000,
			Policy:    models.PolicySequential,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().Games/2, result.Primary.Fixed)

	reports, err := pipeline.SyncIDs(reconcile.SyncJob{
		PrimaryPath:   gamesPath,
		PrimaryColumn: "id",
		Dependents:    []models.DependentTable{rentals, reviews},
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Positive(t, r.Repaired, "%s should have truncated references", r.Table)
		assert.Zero(t, r.Unresolved, "%s has unresolved references: %v", r.Table, r.Missing)
	}

	games, err := table.Load(gamesPath, "games")
	require.NoError(t, err)
	valid := make(map[string]bool)
	for _, id := range games.Column(0) {
		n, ok := reconcile.WellFormed(id, 10000)
		assert.True(t, ok, "game id %s was not renumbered", id)
		valid[strconv.FormatInt(n, 10)] = true
	}

	out, err := table.Load(rentals.Path, "rentals")
	require.NoError(t, err)
	col := out.Index("game_id")
	for i := range out.Rows {
		assert.True(t, valid[out.Get(i, col)], "rental row %d references unknown game %s", i, out.Get(i, col))
	}
}
