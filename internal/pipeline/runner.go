package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/recgest/internal/chunker"
	"github.com/dgallion1/recgest/internal/config"
	"github.com/dgallion1/recgest/internal/doctree"
	"github.com/dgallion1/recgest/internal/extract"
	"github.com/dgallion1/recgest/internal/logger"
	"github.com/dgallion1/recgest/internal/metrics"
	"github.com/dgallion1/recgest/internal/recdoc"
	"github.com/dgallion1/recgest/internal/store"
)

// Outcome names how a run ended.
type Outcome string

const (
	OutcomeNoText            Outcome = "no_text"
	OutcomeNoSections        Outcome = "no_sections"
	OutcomeNoTriageHits      Outcome = "no_triage_hits"
	OutcomeNoRecommendations Outcome = "no_recommendations"
	OutcomeCompleted         Outcome = "completed"
)

// Result summarizes one run. Count is the number of rendered
// recommendations; it is zero for every outcome but OutcomeCompleted.
type Result struct {
	Count        int      `json:"recommendations"`
	Outcome      Outcome  `json:"outcome"`
	SoftFailures []string `json:"soft_failures,omitempty"`
}

// GuidelineStore is the persistence the runner reads titles from and
// writes the rendered display to.
type GuidelineStore interface {
	GetGuideline(ctx context.Context, id string) (store.Guideline, error)
	UpdateRecommendationsDisplay(ctx context.Context, id, md string) error
}

// RunnerConfig holds the stage budgets.
type RunnerConfig struct {
	Strictness          extract.Strictness
	TriageBatchSize     int
	Triage              extract.TriageLimits
	ExtractMaxChars     int
	ExtractOverlapChars int
	Classify            extract.ClassifyLimits
	Taxonomy            *recdoc.Taxonomy
}

// NewRunnerConfig derives stage budgets from service configuration.
func NewRunnerConfig(cfg config.Config) (RunnerConfig, error) {
	s, err := extract.ParseStrictness(cfg.Strictness)
	if err != nil {
		return RunnerConfig{}, err
	}
	return RunnerConfig{
		Strictness:          s,
		TriageBatchSize:     cfg.TriageBatchSize,
		Triage:              extract.TriageLimits{PathMax: cfg.TriagePathMax, PreviewMax: cfg.TriagePreviewMax},
		ExtractMaxChars:     cfg.ExtractMaxChars,
		ExtractOverlapChars: cfg.ExtractOverlapChars,
		Classify: extract.ClassifyLimits{
			BatchSize: cfg.ClassifyBatchSize,
			MaxChars:  cfg.ClassifyMaxChars,
			ItemMax:   cfg.ClassifyItemMax,
		},
		Taxonomy: recdoc.NewTaxonomy(cfg.Taxonomy),
	}, nil
}

// Runner turns a guideline's markdown into its rendered recommendations
// display. Stages run one request at a time in a fixed order.
type Runner struct {
	llm   extract.Completer
	store GuidelineStore
	cfg   RunnerConfig
	log   *logger.Logger
}

func NewRunner(llm extract.Completer, st GuidelineStore, cfg RunnerConfig, log *logger.Logger) *Runner {
	if cfg.TriageBatchSize <= 0 {
		cfg.TriageBatchSize = 10
	}
	if cfg.ExtractMaxChars <= 0 {
		cfg.ExtractMaxChars = 12000
	}
	if cfg.ExtractOverlapChars < 0 || cfg.ExtractOverlapChars >= cfg.ExtractMaxChars {
		cfg.ExtractOverlapChars = 0
	}
	if cfg.Strictness == "" {
		cfg.Strictness = extract.Medium
	}
	if cfg.Taxonomy == nil {
		cfg.Taxonomy = recdoc.NewTaxonomy(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{llm: llm, store: st, cfg: cfg, log: log.With("component", "pipeline")}
}

// run carries the per-run state; nothing in it outlives Run.
type run struct {
	*Runner
	id       string
	log      *logger.Logger
	progress progressSink
	soft     []string
}

func (r *run) softFail(stage, where, reason string) {
	metrics.StageSoftFailures.WithLabelValues(stage).Inc()
	msg := fmt.Sprintf("%s %s: %s", stage, where, reason)
	r.soft = append(r.soft, msg)
	r.log.Warn("stage contributed nothing", "stage", stage, "where", where, "reason", reason)
}

func (r *run) finish(outcome Outcome, count int, msg, detail string) Result {
	metrics.PipelineRuns.WithLabelValues(string(outcome)).Inc()
	if detail == "" {
		r.progress.report(count, count, msg)
	} else {
		r.progress.reportDetail(0, 0, msg, detail)
	}
	r.log.Info("pipeline finished", "outcome", outcome, "recommendations", count, "soft_failures", len(r.soft))
	return Result{Count: count, Outcome: outcome, SoftFailures: r.soft}
}

// Run executes sectionize, triage, extraction, dedup, classification and
// rendering over markdown and persists the rendered display. Empty
// conditions end the run early with a zero count and no write. The error
// is non-nil only for persistence failures and context cancellation.
func (r *Runner) Run(ctx context.Context, guidelineID, markdown string, progress ProgressFunc) (Result, error) {
	rn := &run{
		Runner:   r,
		id:       guidelineID,
		log:      r.log.With("guideline_id", guidelineID),
		progress: progressSink{fn: progress, log: r.log},
	}

	if strings.TrimSpace(markdown) == "" {
		return rn.finish(OutcomeNoText, 0, "No extractable text", "document conversion returned no markdown"), nil
	}

	sections := chunker.Sectionize(markdown)
	if len(sections) == 0 {
		return rn.finish(OutcomeNoSections, 0, "No sections found", "markdown had no non-blank content"), nil
	}
	rn.progress.report(0, len(sections), "Sections split")

	pursue, err := rn.triage(ctx, sections)
	if err != nil {
		return Result{}, err
	}
	if len(pursue) == 0 {
		return rn.finish(OutcomeNoTriageHits, 0, "No recommendation sections detected", "triage kept no sections"), nil
	}

	recs, err := rn.extract(ctx, sections, pursue)
	if err != nil {
		return Result{}, err
	}
	if len(recs) == 0 {
		return rn.finish(OutcomeNoRecommendations, 0, "No recommendations extracted", fmt.Sprintf("%d sections searched", len(pursue))), nil
	}

	if err := rn.classify(ctx, recs); err != nil {
		return Result{}, err
	}

	title := guidelineID
	if g, err := r.store.GetGuideline(ctx, guidelineID); err == nil {
		title = g.Title()
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("load guideline: %w", err)
	}

	md := recdoc.Render(recs, title, r.cfg.Taxonomy)
	if err := r.store.UpdateRecommendationsDisplay(ctx, guidelineID, md); err != nil {
		return Result{}, fmt.Errorf("save recommendations display: %w", err)
	}
	metrics.RecommendationsExtracted.Add(float64(len(recs)))
	rn.progress.reportDetail(len(recs), len(recs), "Recommendations rendered", fmt.Sprintf("%d recommendations", len(recs)))
	return rn.finish(OutcomeCompleted, len(recs), "Done", ""), nil
}

// triage returns the pursued section indices, deduplicated in first-seen
// order across batches.
func (r *run) triage(ctx context.Context, sections []doctree.Section) ([]int, error) {
	var pursue []int
	seen := make(map[int]bool)
	k := r.cfg.TriageBatchSize
	nBatches := (len(sections) + k - 1) / k

	for b := 0; b < len(sections); b += k {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := sections[b:min(b+k, len(sections))]
		where := fmt.Sprintf("batch %d/%d", b/k+1, nBatches)

		out := extract.Triage(ctx, r.llm, batch, r.cfg.Triage)
		detail := where
		if !out.OK() {
			r.softFail("triage", where, out.Reason())
			detail = where + " failed: " + out.Reason()
		}
		for _, idx := range out.Value {
			if !seen[idx] {
				seen[idx] = true
				pursue = append(pursue, idx)
			}
		}
		r.progress.reportDetail(b+len(batch), len(sections), "Triaging sections", detail)
	}
	return pursue, nil
}

// extract runs extraction over every part of the pursued sections in
// document order and folds the results through the accumulator.
func (r *run) extract(ctx context.Context, sections []doctree.Section, pursue []int) ([]recdoc.Recommendation, error) {
	want := make(map[int]bool, len(pursue))
	for _, idx := range pursue {
		want[idx] = true
	}
	var parts []doctree.SectionPart
	for _, sec := range sections {
		if want[sec.Index] {
			parts = append(parts, chunker.SplitSection(sec, r.cfg.ExtractMaxChars, r.cfg.ExtractOverlapChars)...)
		}
	}

	acc := recdoc.NewAccumulator()
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.log.Debug("extracting part", "section", part.Label(), "chars", len(part.Text),
			"est_tokens", chunker.EstimateTokens(part.Text))
		out := extract.ExtractRecommendations(ctx, r.llm, part, r.cfg.Strictness)
		detail := part.Label()
		if !out.OK() {
			r.softFail("extraction", part.Label(), out.Reason())
			detail += " failed: " + out.Reason()
		}
		for _, rec := range out.Value {
			acc.Add(rec)
		}
		r.progress.reportDetail(i+1, len(parts), "Extracting recommendations", detail)
	}
	return acc.Items(), nil
}

// classify sets SectionLabel on every item; anything the service leaves
// unmapped falls back to Other.
func (r *run) classify(ctx context.Context, recs []recdoc.Recommendation) error {
	texts := make([]string, len(recs))
	for i, rec := range recs {
		texts[i] = rec.Text
	}
	spans := extract.ClassifyBatches(texts, r.cfg.Classify)
	for bi, sp := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		where := fmt.Sprintf("batch %d/%d", bi+1, len(spans))
		out := extract.Classify(ctx, r.llm, texts[sp.Start:sp.End], r.cfg.Taxonomy, r.cfg.Classify.ItemMax)
		detail := where
		if !out.OK() {
			r.softFail("classification", where, out.Reason())
			detail = where + " failed: " + out.Reason()
		}
		for local, label := range out.Value {
			recs[sp.Start+local-1].SectionLabel = label
		}
		r.progress.reportDetail(sp.End, len(recs), "Classifying recommendations", detail)
	}
	for i := range recs {
		if recs[i].SectionLabel == "" {
			recs[i].SectionLabel = recdoc.Other
		}
	}
	return nil
}
