package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/graph"
	"github.com/archlens/archlens/internal/models"
	"github.com/google/uuid"
)

// LoadMode selects how a collection load treats failures
type LoadMode string

const (
	// LoadModeBestEffort wipes the graph, then applies each record in its own
	// transaction. Failing records are reported and skipped; the wipe stays.
	LoadModeBestEffort LoadMode = "best-effort"

	// LoadModeAllOrNothing wipes and applies every record in one transaction.
	// Any failure leaves the previous graph untouched.
	LoadModeAllOrNothing LoadMode = "all-or-nothing"
)

// ParseLoadMode parses a config or flag value; "" means LoadModeBestEffort
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(s) {
	case "", LoadModeBestEffort:
		return LoadModeBestEffort, nil
	case LoadModeAllOrNothing:
		return LoadModeAllOrNothing, nil
	default:
		return "", errors.ConfigErrorf("invalid load mode %q (must be best-effort or all-or-nothing)", s)
	}
}

// RecordFailure is one record that did not make it into the graph. Message
// carries Err's text for JSON reports.
type RecordFailure struct {
	Class   string `json:"class"`
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Error returns the failure message
func (f RecordFailure) Error() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// LoadReport summarizes a collection load
type LoadReport struct {
	RunID      string          `json:"run_id"`
	Mode       LoadMode        `json:"mode"`
	Scope      IdentityScope   `json:"identity_scope"`
	Succeeded  []string        `json:"succeeded"`
	Failed     []RecordFailure `json:"failed"`
	Statements int             `json:"statements"`
	Duration   time.Duration   `json:"duration"`
}

// HasFailures reports whether any record failed
func (r *LoadReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Loader rebuilds the graph from a metadata collection. Records are
// processed sequentially.
type Loader struct {
	backend graph.Backend
	engine  *Engine
	logger  *slog.Logger
}

// NewLoader creates a loader writing through backend
func NewLoader(backend graph.Backend, engine *Engine) *Loader {
	if engine == nil {
		engine = NewEngine(ScopeGlobal)
	}
	return &Loader{
		backend: backend,
		engine:  engine,
		logger:  slog.Default().With("component", "loader"),
	}
}

// Load clears the graph and rebuilds it from records. The report is returned
// even when err is non-nil.
//
// Best-effort: err is non-nil only when the wipe fails or ctx is canceled;
// per-record failures are in the report. All-or-nothing: err is non-nil when any record is
// invalid (checked before the wipe) or fails to apply, and the graph keeps
// its previous contents.
func (l *Loader) Load(ctx context.Context, records []*models.CodeMetadata, mode LoadMode) (*LoadReport, error) {
	if mode == "" {
		mode = LoadModeBestEffort
	}

	start := time.Now()
	report := &LoadReport{
		RunID:     uuid.New().String(),
		Mode:      mode,
		Scope:     l.engine.Scope(),
		Succeeded: []string{},
		Failed:    []RecordFailure{},
	}
	defer func() {
		report.Duration = time.Since(start)
	}()

	l.logger.Info("load started",
		"run_id", report.RunID,
		"mode", mode,
		"identity_scope", report.Scope,
		"records", len(records))

	var err error
	switch mode {
	case LoadModeBestEffort:
		err = l.loadBestEffort(ctx, records, report)
	case LoadModeAllOrNothing:
		err = l.loadAllOrNothing(ctx, records, report)
	default:
		err = errors.ConfigErrorf("unknown load mode %q", mode)
	}

	l.logger.Info("load finished",
		"run_id", report.RunID,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"statements", report.Statements,
		"duration", time.Since(start))
	return report, err
}

func (l *Loader) loadBestEffort(ctx context.Context, records []*models.CodeMetadata, report *LoadReport) error {
	if err := l.backend.ExecuteWrite(ctx, graph.OpGraphWipe, func(tx graph.Tx) error {
		return tx.DeleteAll(ctx)
	}); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}

	for _, md := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load interrupted: %w", err)
		}

		if err := md.Validate(); err != nil {
			report.Failed = append(report.Failed, newFailure(md, errors.ValidationError(err, "record rejected")))
			l.logger.Warn("record rejected", "record", describe(md), "error", err)
			continue
		}

		var stats *ApplyStats
		err := l.backend.ExecuteWrite(ctx, graph.OpRecordUpsert, func(tx graph.Tx) error {
			var applyErr error
			stats, applyErr = l.engine.Apply(ctx, tx, md)
			return applyErr
		})
		if err != nil {
			report.Failed = append(report.Failed, newFailure(md, err))
			l.logger.Warn("record failed", "class", md.ClassName, "file", md.FileName, "error", err)
			continue
		}

		report.Statements += stats.Statements
		report.Succeeded = append(report.Succeeded, md.ClassName)
	}
	return nil
}

func (l *Loader) loadAllOrNothing(ctx context.Context, records []*models.CodeMetadata, report *LoadReport) error {
	for _, md := range records {
		if err := md.Validate(); err != nil {
			report.Failed = append(report.Failed, newFailure(md, errors.ValidationError(err, "record rejected")))
		}
	}
	if report.HasFailures() {
		return errors.ValidationErrorf("%d of %d records failed validation; graph left unchanged",
			len(report.Failed), len(records))
	}

	statements := 0
	applied := make([]string, 0, len(records))
	err := l.backend.ExecuteWrite(ctx, graph.OpCollectionLoad, func(tx graph.Tx) error {
		if err := tx.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear graph: %w", err)
		}
		for _, md := range records {
			stats, err := l.engine.Apply(ctx, tx, md)
			if err != nil {
				report.Failed = append(report.Failed, newFailure(md, err))
				return err
			}
			statements += stats.Statements
			applied = append(applied, md.ClassName)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load rolled back: %w", err)
	}

	report.Statements = statements
	report.Succeeded = applied
	return nil
}

func newFailure(md *models.CodeMetadata, err error) RecordFailure {
	f := RecordFailure{Err: err}
	if err != nil {
		f.Kind = errors.GetType(err).String()
		f.Message = err.Error()
	}
	if md != nil {
		f.Class, f.File = md.ClassName, md.FileName
	}
	return f
}

func describe(md *models.CodeMetadata) string {
	if md == nil {
		return "<nil>"
	}
	return md.Identifier()
}
