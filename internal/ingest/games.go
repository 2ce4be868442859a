package ingest

import (
	"strings"

	"github.com/dullg/boardgame-migrate/pkg/models"
)

// GameColumns is the cleaned games header. renter, due_date and condition are
// kept only so the rental state can be migrated later.
var GameColumns = []string{
	"id", "name", "category", "image", "naver_id", "bgg_id", "status",
	"difficulty", "genre", "players", "tags", "total_views", "dibs_count",
	"review_count", "avg_rating", "renter", "due_date", "condition",
}

// Game status values
const (
	StatusAvailable = "AVAILABLE"
	StatusRented    = "RENTED"
	StatusReserved  = "RESERVED"
)

var counterColumns = map[string]bool{
	"total_views":  true,
	"dibs_count":   true,
	"review_count": true,
}

// NormalizeStatus maps the spreadsheet's Korean status labels
func NormalizeStatus(label string) string {
	switch strings.TrimSpace(label) {
	case "대여중":
		return StatusRented
	case "찜", "예약":
		return StatusReserved
	default:
		return StatusAvailable
	}
}

// CleanGames projects the raw games sheet onto GameColumns, trimming values,
// normalizing status and zero-filling blank counters. Columns missing from the
// sheet come out blank.
func CleanGames(raw *models.Table) (*models.Table, models.IngestReport) {
	var report models.IngestReport
	out := models.NewTable("games", GameColumns...)

	source := make([]int, len(GameColumns))
	for i, name := range GameColumns {
		source[i] = raw.Index(name)
	}

	for r := range raw.Rows {
		report.Read++
		row := make([]string, len(GameColumns))
		for i, name := range GameColumns {
			value := ""
			if source[i] >= 0 {
				value = strings.TrimSpace(raw.Get(r, source[i]))
			}
			switch {
			case name == "status":
				value = NormalizeStatus(value)
			case counterColumns[name] && value == "":
				value = "0"
			}
			row[i] = value
		}
		out.Rows = append(out.Rows, row)
		report.Written++
	}
	return out, report
}
