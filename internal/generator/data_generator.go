package generator

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"

	"github.com/dullg/boardgame-migrate/internal/ingest"
	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/internal/timeparse"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
)

// Identifier ranges of the legacy export: hand-entered ids below the
// renumbering threshold and spreadsheet timestamp ids far above it
const (
	smallIDMin     = 1000
	smallIDMax     = 7999
	timestampIDMin = 1700000000000
	timestampIDMax = 1799999999999
)

// File names written by Sample.Save
const (
	GamesFile   = "games.csv"
	RentalsFile = "rentals.csv"
	ReviewsFile = "reviews.csv"
	LogsFile    = "logs.csv"
	UsersFile   = "users.csv"
)

// LegacyRentalColumns is the header of the legacy rentals sheet
var LegacyRentalColumns = []string{"rental_id", "game_id", "user_id", "borrowed_at"}

// LegacyLogColumns is the header of the legacy activity log
var LegacyLogColumns = []string{"action_type", "game_id", "user_id", "value", "timestamp"}

// LegacyUserColumns is the header of the legacy users sheet
var LegacyUserColumns = []string{"student_id", "name", "password", "phone", "role", "penalty", "paid"}

var statusLabels = []string{"대여가능", "대여중", "찜", "예약", ""}

var categories = []string{"전략", "파티", "가족", "추리", "협력"}

// NewFaker returns the random source used for sampling and for the random
// renumbering policy; seed 0 means time-seeded
func NewFaker(seed int64) faker.Faker {
	if seed == 0 {
		return faker.New()
	}
	return faker.NewWithSeed(rand.NewSource(seed))
}

// Options sets how many rows of each table to generate
type Options struct {
	Games   int
	Rentals int
	Reviews int
	Logs    int
	Users   int
}

// DefaultOptions returns a small but representative export
func DefaultOptions() Options {
	return Options{Games: 40, Rentals: 60, Reviews: 30, Logs: 200, Users: 25}
}

// Sample is a synthetic legacy export
type Sample struct {
	Games   *models.Table
	Rentals *models.Table
	Reviews *models.Table
	Logs    *models.Table
	Users   *models.Table
}

// DataGenerator builds synthetic legacy exports shaped like the real one:
// mixed identifier styles, truncated foreign keys and both meridiem styles
type DataGenerator struct {
	Faker   faker.Faker
	Options Options
	Logger  *logrus.Logger
}

// NewDataGenerator creates a new data generator
func NewDataGenerator(f faker.Faker, opts Options, logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Faker:   f,
		Options: opts,
		Logger:  logger,
	}
}

// Generate builds every table of the export
func (dg *DataGenerator) Generate() *Sample {
	users := dg.generateUsers()
	studentIDs := users.Column(0)
	games, smallIDs := dg.generateGames()
	gameIDs := games.Column(0)

	sample := &Sample{
		Games:   games,
		Rentals: dg.generateRentals(gameIDs, smallIDs, studentIDs),
		Reviews: dg.generateReviews(gameIDs, smallIDs),
		Logs:    dg.generateLogs(gameIDs, studentIDs),
		Users:   users,
	}

	dg.Logger.Infof("Generated %d games, %d rentals, %d reviews, %d log rows, %d users",
		len(sample.Games.Rows), len(sample.Rentals.Rows), len(sample.Reviews.Rows),
		len(sample.Logs.Rows), len(sample.Users.Rows))
	return sample
}

// generateGames alternates small and timestamp-style identifiers
func (dg *DataGenerator) generateGames() (*models.Table, []string) {
	t := models.NewTable("games", ingest.GameColumns...)
	used := make(map[int64]bool)
	var small []string

	for i := 0; i < dg.Options.Games; i++ {
		lo, hi := int64(smallIDMin), int64(smallIDMax)
		if i%2 == 1 {
			lo, hi = timestampIDMin, timestampIDMax
		}
		id := dg.uniqueID(lo, hi, used)
		idStr := strconv.FormatInt(id, 10)
		if i%2 == 0 {
			small = append(small, idStr)
		}

		// counters are left blank on some rows, as in the export
		t.Append(map[string]string{
			"id":          idStr,
			"name":        dg.Faker.Lorem().Word() + " " + dg.Faker.Lorem().Word(),
			"category":    dg.Faker.RandomStringElement(categories),
			"image":       fmt.Sprintf("https://%s/covers/%s.jpg", dg.Faker.Internet().Domain(), idStr),
			"status":      "  " + dg.Faker.RandomStringElement(statusLabels) + " ",
			"players":     fmt.Sprintf("%d-%d", dg.Faker.IntBetween(1, 3), dg.Faker.IntBetween(4, 8)),
			"total_views": dg.optionalCount(),
			"dibs_count":  dg.optionalCount(),
		})
	}
	return t, small
}

// generateRentals points every fifth rental at a truncated identifier
func (dg *DataGenerator) generateRentals(gameIDs, smallIDs, studentIDs []string) *models.Table {
	t := models.NewTable("rentals", LegacyRentalColumns...)
	for i := 0; i < dg.Options.Rentals && len(gameIDs) > 0; i++ {
		gameID := dg.Faker.RandomStringElement(gameIDs)
		if i%5 == 4 && len(smallIDs) > 0 {
			gameID = dg.truncated(dg.Faker.RandomStringElement(smallIDs))
		}
		t.Append(map[string]string{
			"rental_id":   strconv.Itoa(i + 1),
			"game_id":     gameID,
			"user_id":     dg.pick(studentIDs),
			"borrowed_at": dg.legacyTimestamp(i%2 == 0),
		})
	}
	return t
}

func (dg *DataGenerator) generateReviews(gameIDs, smallIDs []string) *models.Table {
	t := models.NewTable("reviews", ingest.ReviewExportColumns...)
	for i := 0; i < dg.Options.Reviews && len(gameIDs) > 0; i++ {
		gameID := dg.Faker.RandomStringElement(gameIDs)
		if i%7 == 6 && len(smallIDs) > 0 {
			gameID = dg.truncated(dg.Faker.RandomStringElement(smallIDs))
		}
		t.Append(map[string]string{
			"review_id": strconv.Itoa(i + 1),
			"game_id":   gameID,
			"user_name": dg.Faker.Person().Name(),
			"password":  dg.Faker.Numerify("####"),
			"rating":    strconv.Itoa(dg.Faker.IntBetween(1, 5)),
			"comment":   dg.Faker.Lorem().Sentence(6),
			"timestamp": dg.legacyTimestamp(i%2 == 1),
		})
	}
	return t
}

// generateLogs mixes VIEW, RENT and other actions; one row in twenty carries
// a broken timestamp
func (dg *DataGenerator) generateLogs(gameIDs, studentIDs []string) *models.Table {
	t := models.NewTable("logs", LegacyLogColumns...)
	actions := []string{"VIEW", "VIEW", "VIEW", "RENT", "DIBS"}
	for i := 0; i < dg.Options.Logs && len(gameIDs) > 0; i++ {
		ts := dg.legacyTimestamp(i%2 == 0)
		if i%20 == 19 {
			ts = "2025. 13. 1. PM 1:00:00"
		}
		t.Append(map[string]string{
			"action_type": dg.Faker.RandomStringElement(actions),
			"game_id":     dg.Faker.RandomStringElement(gameIDs),
			"user_id":     dg.pick(studentIDs),
			"value":       "1",
			"timestamp":   ts,
		})
	}
	return t
}

func (dg *DataGenerator) generateUsers() *models.Table {
	t := models.NewTable("users", LegacyUserColumns...)
	roles := []string{"member", "member", "member", "executive"}
	for i := 0; i < dg.Options.Users; i++ {
		t.Append(map[string]string{
			"student_id": dg.Faker.Numerify("20######"),
			"name":       dg.Faker.Person().Name(),
			"password":   dg.Faker.Internet().Password(),
			"phone":      dg.Faker.Numerify("010-####-####"),
			"role":       dg.Faker.RandomStringElement(roles),
			"penalty":    strconv.Itoa(dg.Faker.IntBetween(0, 2)),
			"paid":       dg.Faker.RandomStringElement([]string{"O", "X"}),
		})
	}
	return t
}

func (dg *DataGenerator) uniqueID(lo, hi int64, used map[int64]bool) int64 {
	for {
		id := dg.Faker.Int64Between(lo, hi)
		if !used[id] {
			used[id] = true
			return id
		}
	}
}

// truncated renders id the way a spreadsheet mangles it: a long number whose
// trailing digits are the real identifier
func (dg *DataGenerator) truncated(id string) string {
	return "99" + dg.Faker.Numerify("#######") + id
}

func (dg *DataGenerator) legacyTimestamp(korean bool) string {
	ts := timeparse.Timestamp{
		Year:   2025,
		Month:  dg.Faker.IntBetween(1, 12),
		Day:    dg.Faker.IntBetween(1, 28),
		Hour:   dg.Faker.IntBetween(0, 23),
		Minute: dg.Faker.IntBetween(0, 59),
		Second: dg.Faker.IntBetween(0, 59),
	}
	return ts.Legacy(korean)
}

func (dg *DataGenerator) optionalCount() string {
	if dg.Faker.IntBetween(0, 3) == 0 {
		return ""
	}
	return strconv.Itoa(dg.Faker.IntBetween(0, 500))
}

func (dg *DataGenerator) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return dg.Faker.RandomStringElement(values)
}

// Outputs lists the files the sample is written to under dir
func (s *Sample) Outputs(dir string) []table.Output {
	return []table.Output{
		{Path: filepath.Join(dir, GamesFile), Table: s.Games},
		{Path: filepath.Join(dir, RentalsFile), Table: s.Rentals},
		{Path: filepath.Join(dir, ReviewsFile), Table: s.Reviews},
		{Path: filepath.Join(dir, LogsFile), Table: s.Logs},
		{Path: filepath.Join(dir, UsersFile), Table: s.Users},
	}
}

// Save writes every table of the sample under dir
func (s *Sample) Save(dir string) error {
	return table.SaveAll(s.Outputs(dir))
}
