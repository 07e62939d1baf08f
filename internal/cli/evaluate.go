package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/pipeline"
	"github.com/ppiankov/claimscope/internal/validate"
	"github.com/ppiankov/claimscope/internal/worker"
	"github.com/spf13/cobra"
)

var (
	evalBatchFile string
	evalAll       bool
	evalOutJSON   string
	evalTimeout   time.Duration
	llmProvider   string
	llmModel      string
	noCache       bool
	noFallback    bool
	noWriteBack   bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [claimant_id claim_id]",
	Short: "Decide FRA eligibility for pooled claims",
	Long: `Evaluate runs conflict detection and the FRA rule checks for a claim and
produces an eligibility verdict with reasons.

With --llm-provider the application (identity numbers masked) and its
conflicts are sent to a text model for review; without one, or when the
model keeps failing, the verdict comes from the rule checks alone.

Example:
  claimscope evaluate X1 T1 --pool pool.yaml
  claimscope evaluate X1 T1 --pool pool.yaml --llm-provider gemini
  claimscope evaluate --all --pool pool.yaml --json verdicts.json
  claimscope evaluate --batch review.txt --pool pool.yaml --llm-provider openai --model gpt-4o-mini`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected <claimant_id> <claim_id>, or --batch/--all with no arguments")
		}
		if len(args) == 0 && evalBatchFile == "" && !evalAll {
			return fmt.Errorf("nothing to evaluate: pass a claim key, --batch <file> or --all")
		}
		return nil
	},
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalBatchFile, "batch", "", "file of claim keys to evaluate")
	evaluateCmd.Flags().BoolVar(&evalAll, "all", false, "evaluate every pooled claim")
	evaluateCmd.Flags().StringVar(&evalOutJSON, "json", "", "output JSON path (optional, - for stdout)")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 10*time.Minute, "total timeout for the evaluation")
	evaluateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the verdict cache")
	evaluateCmd.Flags().BoolVar(&noFallback, "no-fallback", false, "fail instead of falling back to rule verdicts")
	evaluateCmd.Flags().BoolVar(&noWriteBack, "no-write-back", false, "do not record verdicts as reviews on the pool")

	// LLM flags
	evaluateCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, gemini, ollama); empty uses config")
	evaluateCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (default per provider)")
	evaluateCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers for batch runs (default from config)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	cfg := *appConfig
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFallback {
		cfg.Eligibility.FallbackToRules = false
	}
	if noWriteBack {
		cfg.Eligibility.WriteBack = false
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	p, err := openPipeline(ctx, &cfg)
	if err != nil {
		return err
	}
	if cfg.LLM.Provider != "" && p.Provider() == nil {
		fmt.Fprintf(os.Stderr, "Warning: LLM provider %q could not be configured, using rule verdicts\n", cfg.LLM.Provider)
	}
	if provider := p.Provider(); provider != nil && verbose {
		if provider.IsAvailable(ctx) {
			fmt.Fprintf(os.Stderr, "✓ LLM provider %s reachable\n", provider.Name())
		} else {
			fmt.Fprintf(os.Stderr, "Warning: LLM provider %s not reachable; failed calls fall back per config\n", provider.Name())
		}
	}

	// Single claim
	if len(args) == 2 {
		if err := validate.ValidateKey(args[0], args[1]); err != nil {
			return err
		}
		v, err := p.Evaluate(ctx, model.Key{ClaimantID: args[0], ClaimID: args[1]})
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		if evalOutJSON != "" {
			if err := pipeline.WriteJSON(v, evalOutJSON); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}
		}
		if evalOutJSON != "-" {
			pipeline.RenderVerdict(cmd.OutOrStdout(), v)
		}
		return nil
	}

	// Batch
	var keys []model.Key
	if evalBatchFile != "" {
		keys, err = worker.ReadKeysFromFile(evalBatchFile)
		if err != nil {
			return fmt.Errorf("failed to read keys: %w", err)
		}
		if len(keys) == 0 {
			return fmt.Errorf("no claim keys found in %s", evalBatchFile)
		}
	}

	report := p.EvaluateAll(ctx, keys)

	if evalOutJSON != "" {
		if err := pipeline.WriteJSON(report, evalOutJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose && evalOutJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", evalOutJSON)
		}
	}
	if evalOutJSON != "-" {
		pipeline.RenderEvaluationSummary(cmd.OutOrStdout(), report)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("evaluation incomplete: %w", err)
	}
	return nil
}
