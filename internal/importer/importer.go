package importer

import (
	"fmt"
	"strings"

	"github.com/dullg/boardgame-migrate/internal/analyzer"
	"github.com/dullg/boardgame-migrate/internal/connector"
	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
)

// batchSize is the number of rows sent per ExecuteMany transaction
const batchSize = 100

// TableImporter loads migrated CSV tables into the relational backend
type TableImporter struct {
	DB           *connector.DatabaseConnector
	Analyzer     *analyzer.PlanAnalyzer
	Loaded       map[string]*models.Table
	FailedTables map[string]bool
	Logger       *logrus.Logger
}

// NewTableImporter creates a new table importer
func NewTableImporter(db *connector.DatabaseConnector, planAnalyzer *analyzer.PlanAnalyzer, logger *logrus.Logger) *TableImporter {
	return &TableImporter{
		DB:           db,
		Analyzer:     planAnalyzer,
		Loaded:       make(map[string]*models.Table),
		FailedTables: make(map[string]bool),
		Logger:       logger,
	}
}

// LoadTables reads every CSV in the plan. Any missing or unreadable file
// stops the import before a single row is inserted.
func (ti *TableImporter) LoadTables() error {
	for _, t := range ti.Analyzer.Tables {
		loaded, err := table.Load(t.Path, t.Name)
		if err != nil {
			return fmt.Errorf("loading %s: %w", t.Name, err)
		}
		ti.Loaded[t.Name] = loaded
		ti.Logger.Infof("Loaded %d rows for table %s from %s", len(loaded.Rows), t.Name, t.Path)
	}
	return nil
}

// ImportTables inserts all loaded tables in dependency order
func (ti *TableImporter) ImportTables() (models.ImportResult, error) {
	var result models.ImportResult

	ordered, err := ti.Analyzer.GetTableInsertionOrder()
	if err != nil {
		return result, err
	}

	for _, t := range ordered {
		if failed := ti.failedReference(t); failed != "" {
			ti.Logger.Warningf("Skipping table %s: referenced table %s failed to import", t.Name, failed)
			ti.FailedTables[t.Name] = true
			result.FailedTables = append(result.FailedTables, t.Name)
			continue
		}

		inserted, ok := ti.importTable(t.Name)
		if !ok {
			ti.FailedTables[t.Name] = true
			result.FailedTables = append(result.FailedTables, t.Name)
			continue
		}
		result.SuccessfulTables = append(result.SuccessfulTables, t.Name)
		result.TotalRecords += inserted
	}
	return result, nil
}

func (ti *TableImporter) failedReference(t models.ImportTable) string {
	for _, ref := range t.References {
		if ref != t.Name && ti.FailedTables[ref] {
			return ref
		}
	}
	return ""
}

// importTable inserts one table's rows in batches
func (ti *TableImporter) importTable(name string) (int, bool) {
	ti.Logger.Infof("Importing table: %s", name)

	data := ti.Loaded[name]
	if data == nil {
		ti.Logger.Errorf("Table %s was not loaded", name)
		return 0, false
	}
	if len(data.Header) == 0 {
		ti.Logger.Warningf("No columns found for table: %s", name)
		return 0, true // Nothing to insert
	}

	insertSQL := ti.InsertStatement(name, data.Header)

	var paramsList [][]interface{}
	inserted := 0
	for i := range data.Rows {
		paramsList = append(paramsList, rowParams(data, i))

		// Insert in batches of 100 records
		if len(paramsList) >= batchSize || i == len(data.Rows)-1 {
			if _, err := ti.DB.ExecuteMany(insertSQL, paramsList); err != nil {
				ti.Logger.Errorf("Error inserting data into table %s: %v", name, err)
				return inserted, false
			}
			inserted += len(paramsList)
			paramsList = nil
		}
	}

	ti.Logger.Infof("Successfully imported table %s with %d records", name, inserted)
	return inserted, true
}

// InsertStatement builds the parameterized INSERT for a table
func (ti *TableImporter) InsertStatement(name string, header []string) string {
	columns := make([]string, len(header))
	for i, c := range header {
		columns[i] = ti.DB.QuoteIdent(c)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ti.DB.QuoteIdent(name),
		strings.Join(columns, ", "),
		ti.DB.Placeholders(1, len(header)),
	)
}

// rowParams converts a CSV row into statement arguments; empty cells become NULL
func rowParams(t *models.Table, row int) []interface{} {
	params := make([]interface{}, len(t.Header))
	for c := range t.Header {
		if v := t.Get(row, c); v != "" {
			params[c] = v
		}
	}
	return params
}
