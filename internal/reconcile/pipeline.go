package reconcile

import (
	"fmt"

	"github.com/dullg/boardgame-migrate/internal/table"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/sirupsen/logrus"
)

// RenumberJob describes one renumbering run over a primary table and its dependents
type RenumberJob struct {
	PrimaryPath   string
	PrimaryOutput string
	Dependents    []models.DependentTable
	Options       Options
	DryRun        bool
}

// RenumberResult represents the outcome of a renumbering run
type RenumberResult struct {
	Remap      *RemapTable
	Primary    models.RemapReport
	Dependents []models.PropagationReport
}

// SyncJob describes a truncation-recovery run
type SyncJob struct {
	PrimaryPath   string
	PrimaryColumn string
	Dependents    []models.DependentTable
	SuffixLen     int
	DryRun        bool
}

// Pipeline runs the load, reconcile and save steps in order
type Pipeline struct {
	Logger *logrus.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(logger *logrus.Logger) *Pipeline {
	return &Pipeline{Logger: logger}
}

// Renumber loads the primary table, renumbers malformed identifiers, carries the
// new values into every dependent table and writes everything back. Nothing is
// written unless every read and every rewrite succeeded.
func (p *Pipeline) Renumber(job RenumberJob) (*RenumberResult, error) {
	primary, err := table.Load(job.PrimaryPath, "primary")
	if err != nil {
		return nil, fmt.Errorf("loading primary table: %w", err)
	}
	p.Logger.Infof("Loaded %d rows from %s", len(primary.Rows), job.PrimaryPath)

	remapper := NewRemapper(job.Options, p.Logger)
	remap, primaryReport, err := remapper.Compute(primary)
	if err != nil {
		return nil, fmt.Errorf("computing remap: %w", err)
	}

	result := &RenumberResult{Remap: remap, Primary: primaryReport}

	primaryOut := job.PrimaryOutput
	if primaryOut == "" {
		primaryOut = job.PrimaryPath
	}
	outputs := []table.Output{{Path: primaryOut, Table: primary}}

	for _, dep := range job.Dependents {
		name := dependentName(dep)
		t, ok, err := table.LoadOptional(dep.Path, name)
		if err != nil {
			return nil, fmt.Errorf("loading dependent table %s: %w", name, err)
		}
		if !ok {
			p.Logger.Warningf("Dependent table %s not found at %s, skipping", name, dep.Path)
			result.Dependents = append(result.Dependents, models.PropagationReport{Table: name, Skipped: true})
			continue
		}

		report, err := Propagate(t, dep.Column, remap)
		if err != nil {
			return nil, fmt.Errorf("propagating into %s: %w", name, err)
		}
		p.Logger.Infof("Updated %d/%d %s references in %s", report.Updated, report.Rows, dep.Column, name)
		result.Dependents = append(result.Dependents, report)
		outputs = append(outputs, table.Output{Path: dep.OutputPath(), Table: t})
	}

	if job.DryRun {
		p.Logger.Info("Dry run, no files written")
		return result, nil
	}
	if err := table.SaveAll(outputs); err != nil {
		return nil, fmt.Errorf("saving tables: %w", err)
	}
	p.Logger.Infof("Saved %d tables", len(outputs))
	return result, nil
}

// SyncIDs repairs dependent foreign keys against the primary table's current
// identifiers using truncation recovery.
func (p *Pipeline) SyncIDs(job SyncJob) ([]models.RepairReport, error) {
	primary, err := table.Load(job.PrimaryPath, "primary")
	if err != nil {
		return nil, fmt.Errorf("loading primary table: %w", err)
	}
	col, err := primary.MustIndex(job.PrimaryColumn)
	if err != nil {
		return nil, err
	}

	repairer := NewRepairer(primary.Column(col))
	if job.SuffixLen > 0 {
		repairer.SuffixLen = job.SuffixLen
	}
	p.Logger.Infof("Loaded %d valid identifiers from %s", len(repairer.Valid), job.PrimaryPath)

	var reports []models.RepairReport
	var outputs []table.Output
	for _, dep := range job.Dependents {
		name := dependentName(dep)
		t, ok, err := table.LoadOptional(dep.Path, name)
		if err != nil {
			return nil, fmt.Errorf("loading dependent table %s: %w", name, err)
		}
		if !ok {
			p.Logger.Warningf("Dependent table %s not found at %s, skipping", name, dep.Path)
			reports = append(reports, models.RepairReport{Table: name, Skipped: true})
			continue
		}

		report, err := repairer.RepairTable(t, dep.Column)
		if err != nil {
			return nil, fmt.Errorf("repairing %s: %w", name, err)
		}
		p.Logger.Infof("Processed %s: %d valid, %d repaired by suffix, %d unresolved",
			name, report.Valid, report.Repaired, report.Unresolved)
		if report.Unresolved > 0 {
			p.Logger.Warningf("%s has %d rows whose %s matches no identifier", name, report.Unresolved, dep.Column)
			p.Logger.Debugf("Unresolved %s values in %s: %v", dep.Column, name, report.Missing)
		}
		reports = append(reports, report)
		outputs = append(outputs, table.Output{Path: dep.OutputPath(), Table: t})
	}

	if job.DryRun {
		p.Logger.Info("Dry run, no files written")
		return reports, nil
	}
	if err := table.SaveAll(outputs); err != nil {
		return nil, fmt.Errorf("saving tables: %w", err)
	}
	return reports, nil
}

func dependentName(dep models.DependentTable) string {
	if dep.Name != "" {
		return dep.Name
	}
	return dep.Path
}
