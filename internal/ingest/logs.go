package ingest

import (
	"strconv"

	"github.com/dullg/boardgame-migrate/internal/timeparse"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
)

// Action log columns of the legacy export
const (
	ColAction    = "action_type"
	ColGameID    = "game_id"
	ColUserID    = "user_id"
	ColTimestamp = "timestamp"
)

// RentalColumns is the header of the generated rentals table
var RentalColumns = []string{"game_id", "user_id", "borrowed_at", "status"}

// StatsColumns is the header of the generated view statistics table
var StatsColumns = []string{"game_id", "view_count"}

// BorrowerResolver maps the raw actor recorded on a RENT row to a user id.
// Resolution is dataset specific and is always supplied by the caller.
type BorrowerResolver interface {
	Resolve(raw string) string
}

// IdentityResolver keeps the recorded actor as the borrower
type IdentityResolver struct{}

// Resolve returns raw unchanged
func (IdentityResolver) Resolve(raw string) string { return raw }

// MapResolver looks the actor up in a fixed mapping and falls back to raw
type MapResolver map[string]string

// Resolve returns the mapped user id, or raw when unmapped
func (m MapResolver) Resolve(raw string) string {
	if id, ok := m[raw]; ok {
		return id
	}
	return raw
}

// LoadMapResolver builds a resolver from a two-column table (raw, user_id)
func LoadMapResolver(t *models.Table, rawColumn, idColumn string) (MapResolver, error) {
	rawCol, err := t.MustIndex(rawColumn)
	if err != nil {
		return nil, err
	}
	idCol, err := t.MustIndex(idColumn)
	if err != nil {
		return nil, err
	}
	m := make(MapResolver, len(t.Rows))
	for i := range t.Rows {
		m[t.Get(i, rawCol)] = t.Get(i, idCol)
	}
	return m, nil
}

// LogsResult holds the tables produced from the action log
type LogsResult struct {
	Rentals *models.Table
	Stats   *models.Table
	Report  models.IngestReport
	Views   int
}

// LogProcessor turns the spreadsheet action log into rental history and view counts
type LogProcessor struct {
	Resolver BorrowerResolver
	Status   string
	Logger   *logrus.Logger
}

// NewLogProcessor creates a log processor; a nil resolver keeps actors as-is
func NewLogProcessor(resolver BorrowerResolver, logger *logrus.Logger) *LogProcessor {
	if resolver == nil {
		resolver = IdentityResolver{}
	}
	return &LogProcessor{Resolver: resolver, Status: "RETURNED", Logger: logger}
}

// Process aggregates VIEW rows per game and converts RENT rows into rentals.
// RENT rows with an unparseable timestamp are dropped and counted.
func (lp *LogProcessor) Process(logs *models.Table) (*LogsResult, error) {
	cols, err := indexes(logs, ColAction, ColGameID, ColUserID, ColTimestamp)
	if err != nil {
		return nil, err
	}
	actionCol, gameCol, userCol, tsCol := cols[0], cols[1], cols[2], cols[3]

	result := &LogsResult{
		Rentals: models.NewTable("rentals", RentalColumns...),
		Stats:   models.NewTable("history_stats", StatsColumns...),
	}

	viewCounts := make(map[string]int)
	var viewOrder []string

	for i := range logs.Rows {
		result.Report.Read++
		gameID := logs.Get(i, gameCol)

		switch logs.Get(i, actionCol) {
		case "VIEW":
			if _, ok := viewCounts[gameID]; !ok {
				viewOrder = append(viewOrder, gameID)
			}
			viewCounts[gameID]++
			result.Views++
		case "RENT":
			raw := logs.Get(i, tsCol)
			borrowedAt, ok := timeparse.ISO(raw)
			if !ok {
				lp.Logger.Debugf("Dropping RENT row %d: unparseable timestamp %q", i+2, raw)
				result.Report.Dropped++
				continue
			}
			result.Rentals.Rows = append(result.Rentals.Rows, []string{
				gameID,
				lp.Resolver.Resolve(logs.Get(i, userCol)),
				borrowedAt,
				lp.Status,
			})
			result.Report.Written++
		default:
			result.Report.Filtered++
		}
	}

	for _, gameID := range viewOrder {
		result.Stats.Rows = append(result.Stats.Rows, []string{gameID, strconv.Itoa(viewCounts[gameID])})
	}

	if result.Report.Dropped > 0 {
		lp.Logger.Warningf("Dropped %d RENT rows with unparseable timestamps", result.Report.Dropped)
	}
	lp.Logger.Infof("Processed %d log rows: %d rentals, %d views over %d games",
		result.Report.Read, result.Report.Written, result.Views, len(viewOrder))
	return result, nil
}

func indexes(t *models.Table, columns ...string) ([]int, error) {
	out := make([]int, len(columns))
	for i, c := range columns {
		idx, err := t.MustIndex(c)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}
