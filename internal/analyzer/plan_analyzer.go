package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/yourbasic/graph"
)

// ErrCycle is returned when tables reference each other in a loop
var ErrCycle = errors.New("circular table references")

// PlanAnalyzer orders import tables so that referenced tables load first
type PlanAnalyzer struct {
	Tables          []models.ImportTable
	DependencyGraph *graph.Mutable
	TableIndexMap   map[string]int
	IndexTableMap   map[int]string
	External        map[string][]string
	Logger          *logrus.Logger
}

// NewPlanAnalyzer creates a new plan analyzer
func NewPlanAnalyzer(tables []models.ImportTable, logger *logrus.Logger) *PlanAnalyzer {
	return &PlanAnalyzer{
		Tables:        tables,
		TableIndexMap: make(map[string]int),
		IndexTableMap: make(map[int]string),
		External:      make(map[string][]string),
		Logger:        logger,
	}
}

// Analyze builds the dependency graph. An edge runs from a referenced table
// to the table referencing it. References to tables outside the plan are
// assumed to exist in the backend already and are only recorded.
func (pa *PlanAnalyzer) Analyze() error {
	for i, t := range pa.Tables {
		if t.Name == "" {
			return fmt.Errorf("import table %d has no name", i+1)
		}
		if _, dup := pa.TableIndexMap[t.Name]; dup {
			return fmt.Errorf("import table %s listed twice", t.Name)
		}
		pa.TableIndexMap[t.Name] = i
		pa.IndexTableMap[i] = t.Name
	}

	pa.DependencyGraph = graph.New(len(pa.Tables))
	for i, t := range pa.Tables {
		for _, ref := range t.References {
			// Skip self-references
			if ref == t.Name {
				continue
			}
			j, ok := pa.TableIndexMap[ref]
			if !ok {
				pa.External[t.Name] = append(pa.External[t.Name], ref)
				pa.Logger.Warningf("Table %s references %s, which is not part of this import", t.Name, ref)
				continue
			}
			pa.DependencyGraph.Add(j, i)
		}
	}
	return nil
}

// GetCircularTables returns groups of tables that reference each other
func (pa *PlanAnalyzer) GetCircularTables() [][]string {
	if pa.DependencyGraph == nil {
		return nil
	}

	var groups [][]string
	for _, component := range graph.StrongComponents(pa.DependencyGraph) {
		if len(component) < 2 {
			continue
		}
		var names []string
		for _, v := range component {
			names = append(names, pa.IndexTableMap[v])
		}
		sort.Strings(names)
		groups = append(groups, names)
	}
	return groups
}

// GetTableInsertionOrder returns the tables with every referenced table
// ahead of the tables that reference it
func (pa *PlanAnalyzer) GetTableInsertionOrder() ([]models.ImportTable, error) {
	if pa.DependencyGraph == nil {
		if err := pa.Analyze(); err != nil {
			return nil, err
		}
	}

	order, ok := graph.TopSort(pa.DependencyGraph)
	if !ok {
		var parts []string
		for _, group := range pa.GetCircularTables() {
			parts = append(parts, strings.Join(group, " <-> "))
		}
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(parts, "; "))
	}

	ordered := make([]models.ImportTable, 0, len(order))
	for _, v := range order {
		ordered = append(ordered, pa.Tables[v])
	}
	return ordered, nil
}
