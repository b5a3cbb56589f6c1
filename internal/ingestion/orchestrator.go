package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Extractor turns one source file into a validated metadata record
type Extractor interface {
	Extract(ctx context.Context, fileName, source string) (*models.CodeMetadata, error)
}

// MetadataCache stores extraction results by file content
type MetadataCache interface {
	Get(content []byte) (*models.CodeMetadata, bool, error)
	Put(content []byte, md *models.CodeMetadata) error
}

// DefaultRequestsPerSecond paces extraction calls
const DefaultRequestsPerSecond = 4.0

// PipelineOptions tunes a pipeline run
type PipelineOptions struct {
	// RequestsPerSecond caps extraction calls; <= 0 disables pacing
	RequestsPerSecond float64

	// MaxFiles stops the walk after this many files; 0 means all
	MaxFiles int

	// Mode is passed to the loader
	Mode LoadMode
}

// Orchestrator coordinates walk -> extract -> load
type Orchestrator struct {
	extractor Extractor
	cache     MetadataCache
	loader    *Loader
	limiter   *rate.Limiter
	logger    *logrus.Logger
	opts      PipelineOptions
}

// NewOrchestrator creates a pipeline. cache and loader may be nil: without
// a cache every file goes to the extractor; without a loader only Extract
// is usable.
func NewOrchestrator(
	extractor Extractor,
	cache MetadataCache,
	loader *Loader,
	logger *logrus.Logger,
	opts PipelineOptions,
) *Orchestrator {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Orchestrator{
		extractor: extractor,
		cache:     cache,
		loader:    loader,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		opts:      opts,
	}
}

// SkippedFile is a source file that produced no record
type SkippedFile struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// ExtractionResult is the outcome of the extract phase
type ExtractionResult struct {
	Records   []*models.CodeMetadata
	Files     int
	CacheHits int
	Skipped   []SkippedFile
	Duration  time.Duration
}

// IngestionResult is the outcome of a full run
type IngestionResult struct {
	Extraction *ExtractionResult
	Report     *LoadReport
	Duration   time.Duration
}

// Extract walks root and extracts a metadata record from every Java file.
// A file that cannot be read or extracted is logged and skipped.
func (o *Orchestrator) Extract(ctx context.Context, root string) (*ExtractionResult, error) {
	startTime := time.Now()
	o.logger.WithFields(logrus.Fields{
		"root": root,
	}).Info("Starting extraction")

	files, err := WalkJavaFiles(root)
	if err != nil {
		return nil, err
	}
	if o.opts.MaxFiles > 0 && len(files) > o.opts.MaxFiles {
		files = files[:o.opts.MaxFiles]
	}

	result := &ExtractionResult{Files: len(files)}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction interrupted: %w", err)
		}

		md, cached, err := o.extractFile(ctx, path)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, fmt.Errorf("extraction aborted at %s: %w", path, err)
			}
			result.Skipped = append(result.Skipped, SkippedFile{Path: path, Err: err})
			o.logger.WithFields(logrus.Fields{
				"file":  path,
				"error": err,
			}).Warn("Skipping file")
			continue
		}
		if cached {
			result.CacheHits++
		}
		result.Records = append(result.Records, md)

		o.logger.WithFields(logrus.Fields{
			"file":   path,
			"class":  md.ClassName,
			"cached": cached,
			"index":  i + 1,
			"total":  len(files),
		}).Debug("Extracted")
	}

	result.Duration = time.Since(startTime)
	o.logger.WithFields(logrus.Fields{
		"files":      result.Files,
		"records":    len(result.Records),
		"cache_hits": result.CacheHits,
		"skipped":    len(result.Skipped),
		"duration":   result.Duration.String(),
	}).Info("Extraction completed")

	return result, nil
}

// Run extracts every Java file under root and reloads the graph from the
// resulting records
func (o *Orchestrator) Run(ctx context.Context, root string) (*IngestionResult, error) {
	if o.loader == nil {
		return nil, errors.InternalErrorf("orchestrator has no loader")
	}
	startTime := time.Now()

	extraction, err := o.Extract(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	result := &IngestionResult{Extraction: extraction}
	if len(extraction.Records) == 0 {
		o.logger.Warn("No records extracted; graph left unchanged")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	report, err := o.loader.Load(ctx, extraction.Records, o.opts.Mode)
	result.Report = report
	result.Duration = time.Since(startTime)
	if err != nil {
		return result, fmt.Errorf("load failed: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
		"duration":  result.Duration.String(),
	}).Info("Ingestion completed")

	return result, nil
}

func (o *Orchestrator) extractFile(ctx context.Context, path string) (*models.CodeMetadata, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.FileSystemErrorf(err, "failed to read %s", path)
	}

	if o.cache != nil {
		md, ok, err := o.cache.Get(content)
		if err != nil {
			o.logger.WithError(err).Warn("Cache lookup failed")
		} else if ok && md.Validate() == nil {
			return md, true, nil
		}
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limiter: %w", err)
	}

	md, err := o.extractor.Extract(ctx, filepath.Base(path), string(content))
	if err != nil {
		return nil, false, err
	}

	if o.cache != nil {
		if err := o.cache.Put(content, md); err != nil {
			o.logger.WithError(err).Warn("Cache store failed")
		}
	}
	return md, false, nil
}
