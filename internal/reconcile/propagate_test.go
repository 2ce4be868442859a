package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rentalsTable(gameIDs ...string) *models.Table {
	t := models.NewTable("rentals", "game_id", "user_id", "borrowed_at")
	for _, id := range gameIDs {
		t.Rows = append(t.Rows, []string{id, "u1", "2025-12-26T13:17:03"})
	}
	return t
}

func TestPropagateEndToEnd(t *testing.T) {
	games := gamesTable("7", "1700000000123")
	remap, _, err := NewRemapper(sequentialOptions(), testLogger()).Compute(games)
	require.NoError(t, err)

	rentals := rentalsTable("1700000000123", "7", "404")
	report, err := Propagate(rentals, "game_id", remap)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, "2000", rentals.Rows[0][0])
	assert.Equal(t, "7", rentals.Rows[1][0])
	assert.Equal(t, "404", rentals.Rows[2][0], "unknown references are left alone")
	assert.Equal(t, "u1", rentals.Rows[0][1])
}

func TestPropagateIsIdempotent(t *testing.T) {
	games := gamesTable("7", "abc", "1700000000123", "2000")
	opts := sequentialOptions()
	opts.Threshold = 1000
	remap, _, err := NewRemapper(opts, testLogger()).Compute(games)
	require.NoError(t, err)

	rentals := rentalsTable("abc", "1700000000123", "2000", "7", "zzz")
	_, err = Propagate(rentals, "game_id", remap)
	require.NoError(t, err)
	once := rentals.Column(0)

	report, err := Propagate(rentals, "game_id", remap)
	require.NoError(t, err)
	assert.Equal(t, once, rentals.Column(0))
	assert.Equal(t, 0, report.Updated)
}

func TestPropagateMissingColumn(t *testing.T) {
	_, err := Propagate(rentalsTable("1"), "gid", newRemapTable())
	assert.ErrorIs(t, err, models.ErrMissingColumn)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestPipelineRenumber(t *testing.T) {
	dir := t.TempDir()
	gamesPath := filepath.Join(dir, "raw_games.csv")
	rentalsPath := filepath.Join(dir, "rentals.csv")
	reviewsPath := filepath.Join(dir, "reviews.csv")

	writeFile(t, gamesPath, "\xEF\xBB\xBFid,name,tags\n7,Catan,\"a, b\"\n1700000000123,Azul,\n")
	writeFile(t, rentalsPath, "game_id,user_id\n1700000000123,kim\n7,lee\n")

	job := RenumberJob{
		PrimaryPath: gamesPath,
		Dependents: []models.DependentTable{
			{Name: "rentals", Path: rentalsPath, Column: "game_id"},
			{Name: "reviews", Path: reviewsPath, Column: "game_id"},
		},
		Options: sequentialOptions(),
	}
	result, err := NewPipeline(testLogger()).Renumber(job)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Primary.Fixed)
	require.Len(t, result.Dependents, 2)
	assert.Equal(t, 1, result.Dependents[0].Updated)
	assert.True(t, result.Dependents[1].Skipped)

	assert.Equal(t, "id,name,tags\n7,Catan,\"a, b\"\n2000,Azul,\n", readFile(t, gamesPath))
	assert.Equal(t, "game_id,user_id\n2000,kim\n7,lee\n", readFile(t, rentalsPath))
	_, err = os.Stat(reviewsPath)
	assert.True(t, os.IsNotExist(err), "skipped table must not be created")
}

func TestPipelineRenumberWritesNothingOnDependentFailure(t *testing.T) {
	dir := t.TempDir()
	gamesPath := filepath.Join(dir, "raw_games.csv")
	rentalsPath := filepath.Join(dir, "rentals.csv")

	original := "id,name\n1700000000123,Azul\n"
	writeFile(t, gamesPath, original)
	writeFile(t, rentalsPath, "gid,user_id\n1700000000123,kim\n")

	job := RenumberJob{
		PrimaryPath: gamesPath,
		Dependents:  []models.DependentTable{{Name: "rentals", Path: rentalsPath, Column: "game_id"}},
		Options:     sequentialOptions(),
	}
	_, err := NewPipeline(testLogger()).Renumber(job)
	require.ErrorIs(t, err, models.ErrMissingColumn)
	assert.Equal(t, original, readFile(t, gamesPath))
}

func TestPipelineRenumberWritesNothingOnSaveFailure(t *testing.T) {
	dir := t.TempDir()
	gamesPath := filepath.Join(dir, "raw_games.csv")
	rentalsPath := filepath.Join(dir, "rentals.csv")
	blocker := filepath.Join(dir, "blocker")

	originalGames := "id,name\n1700000000123,Azul\n"
	originalRentals := "game_id,user_id\n1700000000123,kim\n"
	writeFile(t, gamesPath, originalGames)
	writeFile(t, rentalsPath, originalRentals)
	writeFile(t, blocker, "not a directory")

	job := RenumberJob{
		PrimaryPath: gamesPath,
		Dependents: []models.DependentTable{{
			Name:   "rentals",
			Path:   rentalsPath,
			Column: "game_id",
			Output: filepath.Join(blocker, "rentals.csv"),
		}},
		Options: sequentialOptions(),
	}
	_, err := NewPipeline(testLogger()).Renumber(job)
	require.Error(t, err)
	assert.Equal(t, originalGames, readFile(t, gamesPath))
	assert.Equal(t, originalRentals, readFile(t, rentalsPath))
}

func TestPipelineRenumberMissingPrimaryIsFatal(t *testing.T) {
	job := RenumberJob{
		PrimaryPath: filepath.Join(t.TempDir(), "missing.csv"),
		Options:     sequentialOptions(),
	}
	_, err := NewPipeline(testLogger()).Renumber(job)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPipelineDryRun(t *testing.T) {
	dir := t.TempDir()
	gamesPath := filepath.Join(dir, "raw_games.csv")
	original := "id\n1700000000123\n"
	writeFile(t, gamesPath, original)

	result, err := NewPipeline(testLogger()).Renumber(RenumberJob{
		PrimaryPath: gamesPath,
		Options:     sequentialOptions(),
		DryRun:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Remap.Len())
	assert.Equal(t, original, readFile(t, gamesPath))
}

func TestPipelineSyncIDs(t *testing.T) {
	dir := t.TempDir()
	gamesPath := filepath.Join(dir, "raw_games.csv")
	rawRentals := filepath.Join(dir, "raw_rentals_rows.csv")
	outRentals := filepath.Join(dir, "rentals.csv")

	writeFile(t, gamesPath, "id,name\n1234,Catan\n77,Azul\n")
	writeFile(t, rawRentals, "game_id,user_id\n99991234,kim\n77,lee\n9999,park\n")

	reports, err := NewPipeline(testLogger()).SyncIDs(SyncJob{
		PrimaryPath:   gamesPath,
		PrimaryColumn: "id",
		Dependents: []models.DependentTable{
			{Name: "rentals", Path: rawRentals, Output: outRentals, Column: "game_id"},
			{Name: "reviews", Path: filepath.Join(dir, "raw_reviews_rows.csv"), Column: "game_id"},
		},
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].Repaired)
	assert.Equal(t, 1, reports[0].Valid)
	assert.Equal(t, 1, reports[0].Unresolved)
	assert.Equal(t, []string{"9999"}, reports[0].Missing)
	assert.True(t, reports[1].Skipped)

	out, err := table.Load(outRentals, "rentals")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234", "77", "9999"}, out.Column(0))
	assert.Equal(t, "game_id,user_id\n99991234,kim\n77,lee\n9999,park\n", readFile(t, rawRentals))
}
