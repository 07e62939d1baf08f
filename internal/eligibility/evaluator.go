// Package eligibility decides FRA patta eligibility for pooled applications.
//
// Every evaluation runs conflict detection and the deterministic rule checks
// first. When a text-model provider is configured the findings are folded into
// a prompt and the model's JSON answer becomes the verdict; otherwise, or when
// the model keeps failing and fallback is enabled, the rule assessment is used.
package eligibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/claimscope/internal/cache"
	"github.com/ppiankov/claimscope/internal/conflict"
	"github.com/ppiankov/claimscope/internal/llm"
	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/score"
	"github.com/ppiankov/claimscope/internal/store"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	retryDelay         = 2 * time.Second
)

// ErrInvalidAnswer is returned when the model never produced a usable verdict
var ErrInvalidAnswer = errors.New("model returned no valid eligibility answer")

// answer is the JSON object the model is asked for
type answer struct {
	Eligibility *bool    `json:"eligibility"`
	Reasons     []string `json:"reasons"`
}

// Evaluator produces verdicts for applications in a pool
type Evaluator struct {
	pool      *store.Pool
	detector  *conflict.Detector
	scorer    *score.Scorer
	provider  llm.Provider // nil means rules only
	modelName string
	limiter   Limiter
	verdicts  cache.VerdictCache
	cacheTTL  time.Duration
	config    model.EligibilityConfig
	logger    *zap.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Limiter throttles provider calls, keyed by provider name
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// NewEvaluator creates an evaluator. provider may be nil for rule-only verdicts.
func NewEvaluator(pool *store.Pool, detector *conflict.Detector, provider llm.Provider, cfg model.EligibilityConfig, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = conflict.NewDetector(pool, nil, nil, logger)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Evaluator{
		pool:     pool,
		detector: detector,
		scorer:   score.NewScorer(cfg.AreaCapHectares),
		provider: provider,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// WithCache stores verdicts in c for ttl. A nil cache disables caching.
func (e *Evaluator) WithCache(c cache.VerdictCache, ttl time.Duration) *Evaluator {
	e.verdicts = c
	e.cacheTTL = ttl
	return e
}

// WithModel records the configured model name so cached verdicts do not survive a model change
func (e *Evaluator) WithModel(name string) *Evaluator {
	e.modelName = name
	return e
}

// WithLimiter throttles provider calls through l
func (e *Evaluator) WithLimiter(l Limiter) *Evaluator {
	e.limiter = l
	return e
}

// Evaluate decides eligibility for the application stored under key
func (e *Evaluator) Evaluate(ctx context.Context, key model.Key) (*model.Verdict, error) {
	app, ok := e.pool.Application(key)
	if !ok {
		return nil, fmt.Errorf("evaluate %s: %w", key, conflict.ErrUnknownClaim)
	}

	res := e.detector.Detect(key.ClaimantID, key.ClaimID, app.Claim.Boundary)

	fingerprint, cacheable := e.fingerprint(app, res)
	if e.verdicts == nil {
		cacheable = false
	} else if !cacheable {
		e.logger.Debug("verdict not cacheable, record does not marshal", zap.String("key", key.String()))
	}
	if cacheable {
		if entry, ok := e.verdicts.Lookup(fingerprint); ok {
			e.logger.Debug("verdict cache hit",
				zap.String("key", key.String()),
				zap.Time("stored_at", entry.StoredAt))
			e.writeBack(key, &entry.Verdict)
			return &entry.Verdict, nil
		}
	}

	shape, _ := e.detector.Builder().BuildReport(app.Claim.Boundary)
	assessment := e.scorer.Assess(app, res, shape != nil)

	var verdict *model.Verdict
	if e.provider == nil {
		verdict = e.rulesVerdict(app, res, assessment)
	} else {
		v, err := e.askModel(ctx, app, res, assessment)
		switch {
		case err == nil:
			verdict = v
		case e.config.FallbackToRules && ctx.Err() == nil:
			e.logger.Warn("falling back to rule verdict",
				zap.String("key", key.String()),
				zap.String("provider", e.provider.Name()),
				zap.Error(err))
			verdict = e.rulesVerdict(app, res, assessment)
		default:
			return nil, fmt.Errorf("evaluate %s: %w", key, err)
		}
	}

	e.writeBack(key, verdict)
	if cacheable {
		entry := cache.Entry{Claim: key, Verdict: *verdict, StoredAt: e.now()}
		if err := e.verdicts.Store(fingerprint, entry, e.cacheTTL); err != nil {
			e.logger.Warn("failed to cache verdict", zap.String("key", key.String()), zap.Error(err))
		}
	}

	e.logger.Info("evaluated claim",
		zap.String("key", key.String()),
		zap.Bool("eligible", verdict.Eligible),
		zap.String("source", verdict.Source),
		zap.Int("conflicts", len(verdict.ConflictingClaimIDs)))

	return verdict, nil
}

func (e *Evaluator) askModel(ctx context.Context, app model.Application, res model.ConflictResult, assessment score.Assessment) (*model.Verdict, error) {
	prompt, err := BuildPrompt(app.Masked(), res)
	if err != nil {
		return nil, err
	}
	req := llm.CompletionRequest{
		System: systemPrompt,
		Prompt: prompt,
		JSON:   true,
	}

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleep(ctx, retryDelay); err != nil {
				return nil, err
			}
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx, e.provider.Name()); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := e.provider.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			e.logger.Warn("model call failed",
				zap.String("provider", e.provider.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		ans, err := parseAnswer(resp.Text)
		if err != nil {
			lastErr = err
			e.logger.Warn("unusable model answer",
				zap.String("provider", e.provider.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		reasons := ans.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		return &model.Verdict{
			ClaimantID:          app.Claim.ClaimantID,
			ClaimID:             app.Claim.ClaimID,
			Eligible:            *ans.Eligibility,
			Reasons:             reasons,
			ConflictingClaimIDs: res.ClaimIDs(),
			Signals:             assessment.Signals,
			Source:              e.provider.Name(),
			Model:               resp.Model,
			EvaluatedAt:         e.now(),
		}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrInvalidAnswer, e.config.MaxAttempts, lastErr)
}

func (e *Evaluator) rulesVerdict(app model.Application, res model.ConflictResult, assessment score.Assessment) *model.Verdict {
	v := assessment.Verdict(app, res, e.now())
	return &v
}

func (e *Evaluator) writeBack(key model.Key, v *model.Verdict) {
	if !e.config.WriteBack {
		return
	}
	e.pool.SetReview(key, model.Review{
		Eligible:   v.Eligible,
		Remarks:    v.Reasons,
		ReviewedAt: v.EvaluatedAt,
	})
}

// fingerprint ties a verdict to the application record, its conflicts and the deciding model.
// Records that do not marshal (non-finite ordinates) are not cacheable.
func (e *Evaluator) fingerprint(app model.Application, res model.ConflictResult) (string, bool) {
	source := model.VerdictSourceRules
	if e.provider != nil {
		source = e.provider.Name()
	}
	record, err := json.Marshal(app)
	if err != nil {
		return "", false
	}
	return cache.Fingerprint(app.Key(), string(record), strings.Join(res.ClaimIDs(), ","), source, e.modelName), true
}

func parseAnswer(text string) (*answer, error) {
	var ans answer
	if err := json.Unmarshal([]byte(llm.StripCodeFence(text)), &ans); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if ans.Eligibility == nil {
		return nil, errors.New("answer has no eligibility field")
	}
	return &ans, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
