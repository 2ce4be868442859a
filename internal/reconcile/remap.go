package reconcile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
)

// ErrRangeExhausted is returned when the random range cannot supply enough free values
var ErrRangeExhausted = errors.New("random identifier range exhausted")

// maxConsecutiveCollisions bounds redraws for a single identifier
const maxConsecutiveCollisions = 1 << 20

// Drawer supplies uniformly distributed integers; faker.Faker satisfies it
type Drawer interface {
	Int64Between(min, max int64) int64
}

// Options configures how the primary table's identifiers are judged and renumbered
type Options struct {
	Column      string
	Threshold   int64
	Floor       int64
	Policy      models.Policy
	RandomMin   int64
	RandomMax   int64
	Drawer      Drawer
	RenumberAll bool
}

// WellFormed reports whether id parses as an integer strictly below threshold
func WellFormed(id string, threshold int64) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, n < threshold
}

// RemapTable maps original identifiers to newly assigned ones
type RemapTable struct {
	entries map[string]string
	keys    []string
}

func newRemapTable() *RemapTable {
	return &RemapTable{entries: make(map[string]string)}
}

func (rt *RemapTable) put(oldID, newID string) {
	if _, exists := rt.entries[oldID]; !exists {
		rt.keys = append(rt.keys, oldID)
	}
	rt.entries[oldID] = newID
}

// Lookup returns the new identifier for an original one
func (rt *RemapTable) Lookup(oldID string) (string, bool) {
	if rt == nil {
		return "", false
	}
	newID, ok := rt.entries[oldID]
	return newID, ok
}

// Len returns the number of distinct remapped identifiers
func (rt *RemapTable) Len() int {
	if rt == nil {
		return 0
	}
	return len(rt.entries)
}

// Keys returns the remapped identifiers in first-assignment order
func (rt *RemapTable) Keys() []string {
	if rt == nil {
		return nil
	}
	return append([]string(nil), rt.keys...)
}

// Remapper computes and applies a RemapTable for a primary table
type Remapper struct {
	Options Options
	Logger  *logrus.Logger
}

// NewRemapper creates a new remapper
func NewRemapper(opts Options, logger *logrus.Logger) *Remapper {
	return &Remapper{Options: opts, Logger: logger}
}

// assignment records the new identifier for one primary row
type assignment struct {
	row   int
	newID string
}

// Compute builds the RemapTable and rewrites the primary key column in place.
// Rows whose identifier is well-formed are left untouched.
func (r *Remapper) Compute(primary *models.Table) (*RemapTable, models.RemapReport, error) {
	opts := r.Options
	report := models.RemapReport{Rows: len(primary.Rows)}

	col, err := primary.MustIndex(opts.Column)
	if err != nil {
		return nil, report, err
	}

	// Scan: maximum well-formed value, rows to renumber, every original id
	var malformed []int
	seen := make(map[string]int)
	var maxValid int64

	for i := range primary.Rows {
		id := primary.Get(i, col)
		seen[id]++

		n, ok := WellFormed(id, opts.Threshold)
		if ok && !opts.RenumberAll {
			if n > maxValid {
				maxValid = n
			}
			continue
		}
		malformed = append(malformed, i)
	}
	report.MaxValid = maxValid
	report.Preserved = len(primary.Rows) - len(malformed)

	report.Duplicates = orderedDuplicates(primary, col, seen)
	if len(report.Duplicates) > 0 {
		r.Logger.Warningf("Primary table %s has %d duplicated identifiers: each occurrence gets its own new id, dependents follow the last one",
			primary.Name, len(report.Duplicates))
	}

	var assigned []assignment
	switch opts.Policy {
	case models.PolicySequential:
		assigned = r.sequential(malformed, maxValid, seen)
	case models.PolicyRandom:
		assigned, err = r.random(malformed, seen)
		if err != nil {
			return nil, report, err
		}
	case models.PolicyNone:
		r.Logger.Infof("Identifier policy is none, %d malformed identifiers left as-is", len(malformed))
		return newRemapTable(), report, nil
	default:
		return nil, report, fmt.Errorf("unsupported identifier policy: %v", opts.Policy)
	}

	remap := newRemapTable()
	for _, a := range assigned {
		remap.put(primary.Get(a.row, col), a.newID)
		primary.Set(a.row, col, a.newID)
	}
	report.Fixed = len(assigned)
	if len(assigned) > 0 {
		report.FirstNewID = assigned[0].newID
	}

	r.Logger.Infof("Max well-formed id in %s: %d. Renumbered %d identifiers, preserved %d",
		primary.Name, maxValid, report.Fixed, report.Preserved)
	return remap, report, nil
}

// sequential numbers rows consecutively from max(maxValid+1, floor).
// Values spelled like an original identifier are skipped so that no new
// identifier is also a remap key.
func (r *Remapper) sequential(rows []int, maxValid int64, original map[string]int) []assignment {
	next := maxValid + 1
	if r.Options.Floor > next {
		next = r.Options.Floor
	}

	assigned := make([]assignment, 0, len(rows))
	for _, row := range rows {
		id := strconv.FormatInt(next, 10)
		for original[id] > 0 {
			next++
			id = strconv.FormatInt(next, 10)
		}
		assigned = append(assigned, assignment{row: row, newID: id})
		next++
	}
	return assigned
}

// random draws unused values from [RandomMin, RandomMax]; every original
// identifier that is an integer starts out used
func (r *Remapper) random(rows []int, original map[string]int) ([]assignment, error) {
	lo, hi := r.Options.RandomMin, r.Options.RandomMax
	if lo > hi {
		return nil, fmt.Errorf("random range is empty: [%d, %d]", lo, hi)
	}
	if r.Options.Drawer == nil {
		return nil, errors.New("random policy requires a random source")
	}

	used := make(map[int64]bool, len(original)+len(rows))
	for id := range original {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			used[n] = true
		}
	}

	free := uint64(hi-lo) + 1
	for n := range used {
		if n >= lo && n <= hi {
			free--
		}
	}
	if uint64(len(rows)) > free {
		return nil, fmt.Errorf("%w: need %d values, %d free in [%d, %d]", ErrRangeExhausted, len(rows), free, lo, hi)
	}

	assigned := make([]assignment, 0, len(rows))
	for _, row := range rows {
		value, err := r.draw(lo, hi, used)
		if err != nil {
			return nil, err
		}
		used[value] = true
		assigned = append(assigned, assignment{row: row, newID: strconv.FormatInt(value, 10)})
	}
	return assigned, nil
}

func (r *Remapper) draw(lo, hi int64, used map[int64]bool) (int64, error) {
	if lo == hi {
		if used[lo] {
			return 0, ErrRangeExhausted
		}
		return lo, nil
	}
	for attempt := 0; attempt < maxConsecutiveCollisions; attempt++ {
		value := r.Options.Drawer.Int64Between(lo, hi)
		if value < lo || value > hi || used[value] {
			continue
		}
		return value, nil
	}
	return 0, fmt.Errorf("%w: %d consecutive collisions in [%d, %d]", ErrRangeExhausted, maxConsecutiveCollisions, lo, hi)
}

func orderedDuplicates(t *models.Table, col int, seen map[string]int) []string {
	var dups []string
	reported := make(map[string]bool)
	for i := range t.Rows {
		id := t.Get(i, col)
		if seen[id] > 1 && !reported[id] {
			reported[id] = true
			dups = append(dups, id)
		}
	}
	return dups
}
