package ingest

import (
	"github.com/dullg/boardgame-migrate/pkg/models"
)

// DefaultSemester is stamped on every imported user
const DefaultSemester = "2025-1"

// AllowedUserColumns is the header of the generated allowed-users table
var AllowedUserColumns = []string{"student_id", "name", "phone", "role", "joined_semester"}

// AllowedUsers projects the legacy users sheet onto the allowed-users table.
// Passwords, payment and penalty columns are not carried over.
func AllowedUsers(users *models.Table, semester string) (*models.Table, models.IngestReport, error) {
	var report models.IngestReport
	cols, err := indexes(users, "student_id", "name", "phone", "role")
	if err != nil {
		return nil, report, err
	}
	if semester == "" {
		semester = DefaultSemester
	}

	out := models.NewTable("allowed_users", AllowedUserColumns...)
	for i := range users.Rows {
		report.Read++
		out.Rows = append(out.Rows, []string{
			users.Get(i, cols[0]),
			users.Get(i, cols[1]),
			users.Get(i, cols[2]),
			users.Get(i, cols[3]),
			semester,
		})
		report.Written++
	}
	return out, report, nil
}
