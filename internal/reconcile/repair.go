package reconcile

import (
	"github.com/dullg/boardgame-migrate/pkg/models"
)

// DefaultSuffixLen is how many trailing characters truncation recovery matches on
const DefaultSuffixLen = 4

// Outcome classifies a single truncation-recovery attempt
type Outcome int

const (
	// Valid means the value was already a known identifier
	Valid Outcome = iota
	// Repaired means the value was replaced by the identifier matching its suffix
	Repaired
	// Unresolved means no match was found and the value was kept
	Unresolved
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Repaired:
		return "repaired"
	default:
		return "unresolved"
	}
}

// Repairer maps foreign keys that fail exact lookup onto a valid identifier
// sharing their trailing characters. This is a guess: two long identifiers
// with the same suffix both land on the same row.
type Repairer struct {
	Valid     map[string]bool
	SuffixLen int
}

// NewRepairer builds a repairer from the current identifier column
func NewRepairer(ids []string) *Repairer {
	valid := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			valid[id] = true
		}
	}
	return &Repairer{Valid: valid, SuffixLen: DefaultSuffixLen}
}

// Repair returns the value to store and how it was obtained
func (r *Repairer) Repair(value string) (string, Outcome) {
	if r.Valid[value] {
		return value, Valid
	}

	n := r.SuffixLen
	if n <= 0 {
		n = DefaultSuffixLen
	}
	if runes := []rune(value); len(runes) > n {
		if suffix := string(runes[len(runes)-n:]); r.Valid[suffix] {
			return suffix, Repaired
		}
	}
	return value, Unresolved
}

// RepairTable applies Repair to every row of a foreign-key column
func (r *Repairer) RepairTable(t *models.Table, column string) (models.RepairReport, error) {
	report := models.RepairReport{Table: t.Name, Rows: len(t.Rows)}

	col, err := t.MustIndex(column)
	if err != nil {
		return report, err
	}

	missing := make(map[string]bool)
	for i := range t.Rows {
		value, outcome := r.Repair(t.Get(i, col))
		switch outcome {
		case Valid:
			report.Valid++
		case Repaired:
			t.Set(i, col, value)
			report.Repaired++
		case Unresolved:
			report.Unresolved++
			if !missing[value] {
				missing[value] = true
				report.Missing = append(report.Missing, value)
			}
		}
	}
	return report, nil
}
