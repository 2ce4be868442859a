package models

import (
	"errors"
	"fmt"
	"strings"
)

// Table represents a CSV table held fully in memory
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index returns the position of a column in the header, or -1
func (t *Table) Index(column string) int {
	for i, name := range t.Header {
		if name == column {
			return i
		}
	}
	return -1
}

// MustIndex returns the position of a column or an error naming the table
func (t *Table) MustIndex(column string) (int, error) {
	idx := t.Index(column)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q not in %s (columns: %s)",
			ErrMissingColumn, column, t.Name, strings.Join(t.Header, ", "))
	}
	return idx, nil
}

// Get returns a cell value; short rows read as empty
func (t *Table) Get(row, col int) string {
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Set writes a cell value, padding short rows
func (t *Table) Set(row, col int, value string) {
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// Column returns every value of a column in row order
func (t *Table) Column(col int) []string {
	values := make([]string, len(t.Rows))
	for i := range t.Rows {
		values[i] = t.Get(i, col)
	}
	return values
}

// Record returns a row as a column name to value map
func (t *Table) Record(row int) map[string]string {
	record := make(map[string]string, len(t.Header))
	for i, name := range t.Header {
		record[name] = t.Get(row, i)
	}
	return record
}

// Append adds a row laid out in header order from a record map
func (t *Table) Append(record map[string]string) {
	row := make([]string, len(t.Header))
	for i, name := range t.Header {
		row[i] = record[name]
	}
	t.Rows = append(t.Rows, row)
}

// NewTable creates an empty table with the given header
func NewTable(name string, header ...string) *Table {
	return &Table{
		Name:   name,
		Header: append([]string(nil), header...),
	}
}

// ErrMissingColumn is returned when a configured column is absent from a table
var ErrMissingColumn = errors.New("missing column")

// Policy selects how malformed identifiers get new values
type Policy int

const (
	PolicyNone Policy = iota
	PolicySequential
	PolicyRandom
)

func (p Policy) String() string {
	switch p {
	case PolicySequential:
		return "sequential"
	case PolicyRandom:
		return "random"
	default:
		return "none"
	}
}

// ParsePolicy parses a policy name
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sequential", "seq", "":
		return PolicySequential, nil
	case "random", "rand":
		return PolicyRandom, nil
	case "none":
		return PolicyNone, nil
	}
	return PolicyNone, fmt.Errorf("unknown identifier policy: %q", name)
}

// DependentTable describes a table holding a foreign key into the primary table
type DependentTable struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Output string `yaml:"output"`
	Column string `yaml:"column"`
}

// OutputPath returns where the table is written; defaults to its input path
func (d DependentTable) OutputPath() string {
	if d.Output != "" {
		return d.Output
	}
	return d.Path
}

// RemapReport represents the result of computing and applying a remap
type RemapReport struct {
	Rows       int
	MaxValid   int64
	FirstNewID string
	Fixed      int
	Duplicates []string
	Preserved  int
}

// PropagationReport represents the result of rewriting one foreign-key column
type PropagationReport struct {
	Table   string
	Rows    int
	Updated int
	Skipped bool
}

// RepairReport represents the result of truncation recovery on one table
type RepairReport struct {
	Table      string
	Rows       int
	Valid      int
	Repaired   int
	Unresolved int
	Missing    []string
	Skipped    bool
}

// IngestReport represents the result of a row-filtering ingest step
type IngestReport struct {
	Read     int
	Written  int
	Dropped  int
	Filtered int
}

// ImportTable describes one CSV file to load into a backend table
type ImportTable struct {
	Name       string   `yaml:"name"`
	Path       string   `yaml:"path"`
	References []string `yaml:"references"`
}

// ImportResult represents the result of loading tables into the backend
type ImportResult struct {
	SuccessfulTables []string
	FailedTables     []string
	TotalRecords     int
}

// ImageReport represents the result of moving game images into object storage
type ImageReport struct {
	Total      int
	Success    int
	Skipped    int
	Failed     int
	Candidates []string
}
