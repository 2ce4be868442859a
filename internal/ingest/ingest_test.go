package ingest

import (
	"strings"
	"testing"

	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func mustRead(t *testing.T, name, csv string) *models.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(csv), name)
	require.NoError(t, err)
	return tbl
}

const logsCSV = `log_id,game_id,action_type,user_id,timestamp,value
log_1,2,VIEW,Anonymous,2025. 12. 2. 오전 2:07:19,
log_2,2,RENT,22학번 김범근,2025. 12. 26. PM 1:17:03,대여중
log_3,5,VIEW,Anonymous,2025. 12. 3. AM 9:00:00,
log_4,2,VIEW,Anonymous,2025. 12. 3. AM 9:00:00,
log_5,5,RENT,Admin,garbage,admin
log_6,5,DIBS,Someone,2025. 12. 3. AM 9:00:00,4
log_7,7,RENT,Admin,2025. 1. 1. 오후 12:00:00,admin
`

func TestLogProcessor(t *testing.T) {
	logs := mustRead(t, "logs", logsCSV)
	result, err := NewLogProcessor(nil, testLogger()).Process(logs)
	require.NoError(t, err)

	assert.Equal(t, RentalColumns, result.Rentals.Header)
	assert.Equal(t, [][]string{
		{"2", "22학번 김범근", "2025-12-26T13:17:03", "RETURNED"},
		{"7", "Admin", "2025-01-01T12:00:00", "RETURNED"},
	}, result.Rentals.Rows)

	assert.Equal(t, [][]string{{"2", "2"}, {"5", "1"}}, result.Stats.Rows)
	assert.Equal(t, 7, result.Report.Read)
	assert.Equal(t, 2, result.Report.Written)
	assert.Equal(t, 1, result.Report.Dropped)
	assert.Equal(t, 1, result.Report.Filtered)
	assert.Equal(t, 3, result.Views)
}

func TestLogProcessorWithResolver(t *testing.T) {
	mapping := mustRead(t, "borrowers", "raw,user_id\n22학번 김범근,u-22\n")
	resolver, err := LoadMapResolver(mapping, "raw", "user_id")
	require.NoError(t, err)

	result, err := NewLogProcessor(resolver, testLogger()).Process(mustRead(t, "logs", logsCSV))
	require.NoError(t, err)
	assert.Equal(t, "u-22", result.Rentals.Rows[0][1])
	assert.Equal(t, "Admin", result.Rentals.Rows[1][1], "unmapped actors pass through")
}

func TestLogProcessorMissingColumn(t *testing.T) {
	_, err := NewLogProcessor(nil, testLogger()).Process(mustRead(t, "logs", "game_id,action_type\n1,VIEW\n"))
	assert.ErrorIs(t, err, models.ErrMissingColumn)
}

func TestReviewFilterNarrowHeader(t *testing.T) {
	reviews := mustRead(t, "reviews", `review_id,game_id,user_name,password,rating,comment
r1,2,오세인,1234,5,good,2025. 12. 26. AM 9:05:00
`)
	table.WithHeader(reviews, ReviewExportColumns)

	out, report, err := NewReviewFilter("", testLogger()).Process(reviews)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2", "오세인", "5", "good", "2025-12-26T09:05:00"}}, out.Rows)
	assert.Equal(t, 1, report.Written)
}

func TestReviewFilter(t *testing.T) {
	reviews := mustRead(t, "reviews", `review_id,game_id,user_name,password,rating,comment,
r1,2,오세인,1234,5,"재밌어요, 최고",2025. 12. 26. PM 1:17:03
r2,3,other,1234,3,meh,2025. 12. 26. PM 1:17:03
r3,4,오세인,1234,4,good,not a date
`)
	table.WithHeader(reviews, ReviewExportColumns)

	out, report, err := NewReviewFilter("오세인", testLogger()).Process(reviews)
	require.NoError(t, err)
	assert.Equal(t, ReviewColumns, out.Header)
	assert.Equal(t, [][]string{{"2", "오세인", "5", "재밌어요, 최고", "2025-12-26T13:17:03"}}, out.Rows)
	assert.Equal(t, models.IngestReport{Read: 3, Written: 1, Dropped: 1, Filtered: 1}, report)

	all, report, err := NewReviewFilter("", testLogger()).Process(reviews)
	require.NoError(t, err)
	assert.Len(t, all.Rows, 2)
	assert.Equal(t, 0, report.Filtered)
}

func TestAllowedUsers(t *testing.T) {
	users := mustRead(t, "users", "name,student_id,password,phone,is_paid,penalty,last_login,role\n김,2022001,pw,010-1,Y,0,,member\n")
	out, report, err := AllowedUsers(users, "")
	require.NoError(t, err)
	assert.Equal(t, AllowedUserColumns, out.Header)
	assert.Equal(t, [][]string{{"2022001", "김", "010-1", "member", DefaultSemester}}, out.Rows)
	assert.Equal(t, 1, report.Written)

	out, _, err = AllowedUsers(users, "2025-2")
	require.NoError(t, err)
	assert.Equal(t, "2025-2", out.Rows[0][4])
}

func TestCleanGames(t *testing.T) {
	raw := mustRead(t, "games", "id,name,status,image,total_views,extra\n 1 , Catan ,대여중,,,x\n2,Azul,찜,http://img/a.png,5,y\n3,Go,,,,\n")
	out, report := CleanGames(raw)

	assert.Equal(t, GameColumns, out.Header)
	assert.Equal(t, 3, report.Written)

	rec := out.Record(0)
	assert.Equal(t, "1", rec["id"])
	assert.Equal(t, "Catan", rec["name"])
	assert.Equal(t, StatusRented, rec["status"])
	assert.Equal(t, "", rec["image"])
	assert.Equal(t, "0", rec["total_views"])
	assert.Equal(t, "0", rec["dibs_count"])
	assert.Equal(t, "", rec["avg_rating"])

	assert.Equal(t, StatusReserved, out.Record(1)["status"])
	assert.Equal(t, "5", out.Record(1)["total_views"])
	assert.Equal(t, StatusAvailable, out.Record(2)["status"])
}

func TestThumbnailSQL(t *testing.T) {
	games := mustRead(t, "games", "id,name,image\n1,Catan,http://x/it's.png\nabc,Bad,http://x/b.png\n3,NoImage,\n")
	var b strings.Builder
	report, err := ThumbnailSQL(&b, games, "")
	require.NoError(t, err)

	assert.Equal(t, "-- board game thumbnail bulk update\nBEGIN;\n"+
		"UPDATE public.games SET image = 'http://x/it''s.png' WHERE id = 1;\n"+
		"COMMIT;\n", b.String())
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 1, report.Filtered)
}
