package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimscope/internal/model"
)

// Detector defines the conflict check run for each claim in a sweep
type Detector interface {
	DetectClaim(key model.Key) (model.ConflictResult, error)
}

// Evaluator defines the eligibility check run for each claim in a batch
type Evaluator interface {
	Evaluate(ctx context.Context, key model.Key) (*model.Verdict, error)
}

// DetectJob runs conflict detection for one claim
type DetectJob struct {
	Index    int
	Key      model.Key
	Detector Detector
}

// Execute executes the detection job
func (j *DetectJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &DetectResult{Index: j.Index, Key: j.Key, Error: err}
	}
	res, err := j.Detector.DetectClaim(j.Key)
	return &DetectResult{Index: j.Index, Key: j.Key, Result: res, Error: err}
}

// DetectResult represents the result of a detection job
type DetectResult struct {
	Index  int
	Key    model.Key
	Result model.ConflictResult
	Error  error
}

// GetError returns the error from the detection result
func (r *DetectResult) GetError() error {
	return r.Error
}

// EvaluateJob runs an eligibility evaluation for one claim
type EvaluateJob struct {
	Index     int
	Key       model.Key
	Evaluator Evaluator
}

// Execute executes the evaluation job
func (j *EvaluateJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &EvaluateResult{Index: j.Index, Key: j.Key, Error: err}
	}
	verdict, err := j.Evaluator.Evaluate(ctx, j.Key)
	return &EvaluateResult{Index: j.Index, Key: j.Key, Verdict: verdict, Error: err}
}

// EvaluateResult represents the result of an evaluation job
type EvaluateResult struct {
	Index   int
	Key     model.Key
	Verdict *model.Verdict
	Error   error
}

// GetError returns the error from the evaluation result
func (r *EvaluateResult) GetError() error {
	return r.Error
}

// BatchProcessor runs detection or evaluation over many claims concurrently
type BatchProcessor struct {
	detector    Detector
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a new batch processor. Either collaborator may be nil
// when only the other kind of batch is run.
func NewBatchProcessor(detector Detector, evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		detector:    detector,
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// Sweep runs conflict detection for every key. Results are in input order;
// keys not reached before ctx is cancelled carry the context error.
func (b *BatchProcessor) Sweep(ctx context.Context, keys []model.Key) []*DetectResult {
	out := make([]*DetectResult, len(keys))
	if len(keys) == 0 {
		return out
	}

	jobs := make([]Job, len(keys))
	for i, key := range keys {
		jobs[i] = &DetectJob{Index: i, Key: key, Detector: b.detector}
	}

	for _, r := range b.run(ctx, jobs) {
		res := r.(*DetectResult)
		out[res.Index] = res
	}
	for i, res := range out {
		if res == nil {
			out[i] = &DetectResult{Index: i, Key: keys[i], Error: cancelled(ctx)}
		}
	}

	return out
}

// EvaluateAll runs an eligibility evaluation for every key, in input order
func (b *BatchProcessor) EvaluateAll(ctx context.Context, keys []model.Key) []*EvaluateResult {
	out := make([]*EvaluateResult, len(keys))
	if len(keys) == 0 {
		return out
	}

	jobs := make([]Job, len(keys))
	for i, key := range keys {
		jobs[i] = &EvaluateJob{Index: i, Key: key, Evaluator: b.evaluator}
	}

	for _, r := range b.run(ctx, jobs) {
		res := r.(*EvaluateResult)
		out[res.Index] = res
	}
	for i, res := range out {
		if res == nil {
			out[i] = &EvaluateResult{Index: i, Key: keys[i], Error: cancelled(ctx)}
		}
	}

	return out
}

func (b *BatchProcessor) run(ctx context.Context, jobs []Job) []Result {
	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submit from a separate goroutine so a full queue never deadlocks result collection
	go func() {
		defer pool.Close()
		for _, job := range jobs {
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	var results []Result
	for result := range pool.results {
		results = append(results, result)
	}
	return results
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

// ReadKeysFromFile reads claim keys from a file, one "claimant_id,claim_id" per line.
// Blank lines and # comments are skipped and duplicates are dropped.
func ReadKeysFromFile(filePath string) ([]model.Key, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var keys []model.Key
	seen := make(map[model.Key]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, err := model.ParseKey(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return keys, nil
}
