package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/recgest/internal/logger"
)

// DocumentConverter converts an uploaded guideline to markdown, reusing a
// cached conversion for the same content hash.
type DocumentConverter interface {
	Convert(ctx context.Context, guidelineID, sha string, data []byte, filename string) (string, error)
}

// DisplayReader reports a guideline's saved recommendations display.
type DisplayReader interface {
	GetRecommendationsDisplay(ctx context.Context, id string) (string, error)
}

// Worker processes a single guideline job.
type Worker struct {
	conv     DocumentConverter
	meta     *MetadataService
	runner   *Runner
	displays DisplayReader
	log      *logger.Logger
}

func NewWorker(conv DocumentConverter, meta *MetadataService, runner *Runner, displays DisplayReader, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Worker{conv: conv, meta: meta, runner: runner, displays: displays, log: log}
}

// Process converts the document, extracts metadata and, unless a display
// already exists and the job is not forced, runs the recommendation
// pipeline.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "guideline_id", job.GuidelineID)
	defer job.SetFileData(nil)

	// Phase 1: Convert
	job.SetStatus(StatusConverting, "converting")
	md, err := w.conv.Convert(ctx, job.GuidelineID, job.SHA256, job.FileData(), job.Filename)
	if err != nil {
		log.Error("conversion failed", "error", err)
		job.AddError(fmt.Sprintf("convert: %s", err))
		job.SetStatus(StatusFailed, "converting")
		return
	}
	job.ReportProgress(0, 0, "Document converted", fmt.Sprintf("%d characters of markdown", len(md)))
	log.Info("document converted", "chars", len(md))

	// Phase 2: Metadata (best-effort)
	if w.meta != nil && strings.TrimSpace(md) != "" {
		job.SetStatus(StatusMetadata, "metadata")
		if _, err := w.meta.Extract(ctx, job.GuidelineID, md); err != nil {
			log.Warn("metadata extraction failed", "error", err)
			job.AddError(fmt.Sprintf("metadata: %s", err))
		}
	}

	// Phase 3: Recommendations
	if !job.Force {
		disp, err := w.displays.GetRecommendationsDisplay(ctx, job.GuidelineID)
		if err != nil {
			log.Warn("display lookup failed, extracting anyway", "error", err)
		} else if disp != "" {
			log.Info("recommendations display exists, skipping extraction")
			job.ReportProgress(0, 0, "Skipped", "guideline already has a saved recommendations display")
			job.SetStatus(StatusSkipped, "done")
			return
		}
	}

	job.SetStatus(StatusExtracting, "extracting")
	res, err := w.runner.Run(ctx, job.GuidelineID, md, job.ReportProgress)
	if err != nil {
		log.Error("pipeline failed", "error", err)
		job.AddError(fmt.Sprintf("pipeline: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	job.Finish(res)

	if res.Outcome == OutcomeCompleted {
		job.SetStatus(StatusCompleted, "done")
	} else {
		job.SetStatus(StatusEmpty, string(res.Outcome))
	}
}
