package reconcile

import (
	"github.com/dullg/boardgame-migrate/pkg/models"
)

// Propagate rewrites a foreign-key column wherever the remap has an entry.
// Values without an entry are left byte-for-byte unchanged; referential
// integrity is not checked.
func Propagate(t *models.Table, column string, remap *RemapTable) (models.PropagationReport, error) {
	report := models.PropagationReport{Table: t.Name, Rows: len(t.Rows)}

	col, err := t.MustIndex(column)
	if err != nil {
		return report, err
	}

	for i := range t.Rows {
		if newID, ok := remap.Lookup(t.Get(i, col)); ok {
			t.Set(i, col, newID)
			report.Updated++
		}
	}
	return report, nil
}
