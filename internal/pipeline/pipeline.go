package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimscope/internal/cache"
	"github.com/ppiankov/claimscope/internal/conflict"
	"github.com/ppiankov/claimscope/internal/eligibility"
	"github.com/ppiankov/claimscope/internal/geometry"
	"github.com/ppiankov/claimscope/internal/ingest"
	"github.com/ppiankov/claimscope/internal/llm"
	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/store"
	"github.com/ppiankov/claimscope/internal/worker"
	"go.uber.org/zap"
)

// Pipeline wires the pool, detector and evaluator together
type Pipeline struct {
	pool      *store.Pool
	detector  *conflict.Detector
	shapes    *conflict.ShapeCache // nil when shapes are not memoized
	evaluator *eligibility.Evaluator
	batch     *worker.BatchProcessor
	provider  llm.Provider // nil when no text model is configured
	logger    *zap.Logger
}

// New loads the configured data into a fresh pool and builds a pipeline over it
func New(ctx context.Context, cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	apps, err := ingest.Load(ctx, cfg.Data, logger)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}

	pool := store.NewPool()
	pool.AddAll(apps)
	return NewWithPool(pool, cfg, logger), nil
}

// NewWithPool builds a pipeline over an existing pool
func NewWithPool(pool *store.Pool, cfg *model.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	builder := geometry.NewBuilder(logger)
	var shapes *conflict.ShapeCache
	if cfg.Detection.CacheShapes {
		shapes = conflict.NewShapeCache(cfg.Detection.ShapeCacheTTL)
	}
	detector := conflict.NewDetector(pool, builder, shapes, logger)

	// A misconfigured provider degrades to rule verdicts instead of failing the run
	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, logger))
		if err != nil {
			logger.Warn("failed to initialize LLM provider", zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		} else {
			provider = p
		}
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	for name, r := range cfg.RateLimiting.Providers {
		limiter.SetRate(name, r.RequestsPerSecond, r.BurstSize)
	}
	evaluator := eligibility.NewEvaluator(pool, detector, provider, cfg.Eligibility, logger).
		WithCache(cache.New(cfg.Cache), cfg.Cache.DiskTTL).
		WithModel(cfg.LLM.Model).
		WithLimiter(limiter)

	return &Pipeline{
		pool:      pool,
		detector:  detector,
		shapes:    shapes,
		evaluator: evaluator,
		batch:     worker.NewBatchProcessor(detector, evaluator, cfg.Concurrency.Workers),
		provider:  provider,
		logger:    logger,
	}
}

// Pool returns the pool the pipeline reads and writes reviews to
func (p *Pipeline) Pool() *store.Pool {
	return p.pool
}

// Provider returns the configured text model, or nil for rule-only verdicts
func (p *Pipeline) Provider() llm.Provider {
	return p.provider
}

// Reload re-reads the data sources into the pool. Records that are no longer
// present are removed with their reviews, and memoized shapes are dropped.
func (p *Pipeline) Reload(ctx context.Context, data model.DataConfig) error {
	apps, err := ingest.Load(ctx, data, p.logger)
	if err != nil {
		return fmt.Errorf("reload data: %w", err)
	}

	present := make(map[model.Key]bool, len(apps))
	for _, app := range apps {
		present[app.Key()] = true
	}
	removed := 0
	for _, key := range p.pool.Keys() {
		if !present[key] && p.pool.Remove(key) {
			removed++
		}
	}
	p.pool.AddAll(apps)
	p.shapes.Flush()

	p.logger.Info("pool reloaded",
		zap.Int("claims", p.pool.Len()),
		zap.Int("removed", removed),
		zap.Uint64("version", p.pool.Version()))
	return nil
}

// Detect checks an arbitrary boundary for the given claim identity against the pool
func (p *Pipeline) Detect(claimantID, claimID string, rings []model.Ring) model.ConflictResult {
	return p.detector.Detect(claimantID, claimID, rings)
}

// DetectClaim checks a pooled claim using its stored boundary
func (p *Pipeline) DetectClaim(key model.Key) (model.ConflictResult, error) {
	return p.detector.DetectClaim(key)
}

// Evaluate decides eligibility for one pooled claim
func (p *Pipeline) Evaluate(ctx context.Context, key model.Key) (*model.Verdict, error) {
	return p.evaluator.Evaluate(ctx, key)
}

// Sweep runs conflict detection for keys, or for the whole pool when keys is empty
func (p *Pipeline) Sweep(ctx context.Context, keys []model.Key) *SweepReport {
	if len(keys) == 0 {
		keys = p.pool.Keys()
	}
	report := &SweepReport{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		PoolVersion: p.pool.Version(),
		Claims:      make([]SweepEntry, 0, len(keys)),
	}

	p.logger.Info("sweep started", zap.String("run_id", report.RunID), zap.Int("claims", len(keys)))

	pairs := make(map[[2]string]bool)
	for _, r := range p.batch.Sweep(ctx, keys) {
		entry := SweepEntry{Key: r.Key, Result: r.Result}
		report.Totals.Claims++
		switch {
		case r.Error != nil:
			entry.Error = r.Error.Error()
			report.Totals.Failed++
		case r.Result.ConflictDetected:
			report.Totals.Conflicted++
			for _, c := range r.Result.Conflicts {
				other := model.Key{ClaimantID: c.OtherClaimantID, ClaimID: c.ConflictingClaimID}
				pairs[pairKey(r.Key.String(), other.String())] = true
			}
		default:
			report.Totals.Clean++
		}
		report.Claims = append(report.Claims, entry)
	}
	report.Totals.Pairs = len(pairs)
	report.DurationMS = time.Since(report.StartedAt).Milliseconds()

	p.logger.Info("sweep finished",
		zap.String("run_id", report.RunID),
		zap.Int("conflicted", report.Totals.Conflicted),
		zap.Int("pairs", report.Totals.Pairs),
		zap.Int("failed", report.Totals.Failed),
		zap.Int64("duration_ms", report.DurationMS))

	return report
}

// EvaluateAll decides eligibility for keys, or for the whole pool when keys is empty
func (p *Pipeline) EvaluateAll(ctx context.Context, keys []model.Key) *EvaluationReport {
	if len(keys) == 0 {
		keys = p.pool.Keys()
	}
	report := &EvaluationReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    model.VerdictSourceRules,
		Verdicts:  make([]EvaluationEntry, 0, len(keys)),
	}
	if p.provider != nil {
		report.Source = p.provider.Name()
	}

	p.logger.Info("evaluation started", zap.String("run_id", report.RunID), zap.Int("claims", len(keys)))

	for _, r := range p.batch.EvaluateAll(ctx, keys) {
		entry := EvaluationEntry{Key: r.Key, Verdict: r.Verdict}
		report.Totals.Claims++
		switch {
		case r.Error != nil:
			entry.Error = r.Error.Error()
			report.Totals.Failed++
		case r.Verdict.Eligible:
			report.Totals.Eligible++
		default:
			report.Totals.Ineligible++
		}
		report.Verdicts = append(report.Verdicts, entry)
	}
	report.DurationMS = time.Since(report.StartedAt).Milliseconds()

	p.logger.Info("evaluation finished",
		zap.String("run_id", report.RunID),
		zap.Int("eligible", report.Totals.Eligible),
		zap.Int("ineligible", report.Totals.Ineligible),
		zap.Int("failed", report.Totals.Failed),
		zap.Int64("duration_ms", report.DurationMS))

	return report
}

// pairKey orders two claim keys so A-B and B-A count once
func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
