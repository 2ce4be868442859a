package ingest

import (
	"github.com/dullg/boardgame-migrate/internal/timeparse"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
)

// ReviewExportColumns replaces the header of the legacy reviews sheet, whose
// last column was exported without a name.
var ReviewExportColumns = []string{"review_id", "game_id", "user_name", "password", "rating", "comment", "timestamp"}

// ReviewColumns is the header of the generated reviews table
var ReviewColumns = []string{"game_id", "author_name", "rating", "content", "created_at"}

// ReviewFilter selects and reshapes rows of the legacy reviews sheet
type ReviewFilter struct {
	Author string
	Logger *logrus.Logger
}

// NewReviewFilter creates a review filter; an empty author keeps every row
func NewReviewFilter(author string, logger *logrus.Logger) *ReviewFilter {
	return &ReviewFilter{Author: author, Logger: logger}
}

// Process keeps rows written by the configured author and normalizes their timestamp.
// Rows with an unparseable timestamp are dropped and counted.
func (rf *ReviewFilter) Process(reviews *models.Table) (*models.Table, models.IngestReport, error) {
	var report models.IngestReport
	cols, err := indexes(reviews, "game_id", "user_name", "rating", "comment", "timestamp")
	if err != nil {
		return nil, report, err
	}
	gameCol, userCol, ratingCol, commentCol, tsCol := cols[0], cols[1], cols[2], cols[3], cols[4]

	out := models.NewTable("reviews", ReviewColumns...)
	for i := range reviews.Rows {
		report.Read++
		author := reviews.Get(i, userCol)
		if rf.Author != "" && author != rf.Author {
			report.Filtered++
			continue
		}

		raw := reviews.Get(i, tsCol)
		createdAt, ok := timeparse.ISO(raw)
		if !ok {
			rf.Logger.Warningf("Date parsing failed for review row %d: %q", i+2, raw)
			report.Dropped++
			continue
		}

		out.Rows = append(out.Rows, []string{
			reviews.Get(i, gameCol),
			author,
			reviews.Get(i, ratingCol),
			reviews.Get(i, commentCol),
			createdAt,
		})
		report.Written++
	}

	rf.Logger.Infof("Kept %d of %d reviews (%d other authors, %d bad timestamps)",
		report.Written, report.Read, report.Filtered, report.Dropped)
	return out, report, nil
}
