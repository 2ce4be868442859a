package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dullg/boardgame-migrate/pkg/models"
)

// ThumbnailSQL writes a transaction of UPDATE statements setting each game's
// image. Rows without an integer id or with a blank image produce nothing.
func ThumbnailSQL(w io.Writer, games *models.Table, target string) (models.IngestReport, error) {
	var report models.IngestReport
	cols, err := indexes(games, "id", "image")
	if err != nil {
		return report, err
	}
	if target == "" {
		target = "public.games"
	}

	var b strings.Builder
	b.WriteString("-- board game thumbnail bulk update\n")
	b.WriteString("BEGIN;\n")
	for i := range games.Rows {
		report.Read++
		id := strings.TrimSpace(games.Get(i, cols[0]))
		image := strings.TrimSpace(games.Get(i, cols[1]))
		if id == "" || image == "" {
			report.Filtered++
			continue
		}
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			report.Dropped++
			continue
		}
		fmt.Fprintf(&b, "UPDATE %s SET image = %s WHERE id = %s;\n", target, QuoteLiteral(image), id)
		report.Written++
	}
	b.WriteString("COMMIT;\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return report, err
	}
	return report, nil
}

// QuoteLiteral renders s as a single-quoted SQL string literal
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
