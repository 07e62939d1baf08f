package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/pipeline"
	"github.com/ppiankov/claimscope/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	concurrency  int
	keysFile     string
	sweepOutJSON string
	sweepTimeout time.Duration
	sweepWatch   time.Duration
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Check every pooled claim for overlaps in parallel",
	Long: `Sweep runs conflict detection for every claim in the pool, or for the
claims listed in --keys (one "claimant_id,claim_id" per line), using a
worker pool, and prints a summary of the overlapping pairs.

With --watch the data files are re-read and the sweep repeated at that
interval until interrupted; claims dropped from the files leave the pool.

Example:
  claimscope sweep --pool pool.yaml
  claimscope sweep --titles titles.csv --ifr ifr.geojson --cr cr.geojson --json sweep.json
  claimscope sweep --pool pool.yaml --keys review.txt --concurrency 8
  claimscope sweep --titles titles.csv --ifr ifr.geojson --watch 15m`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	sweepCmd.Flags().StringVar(&keysFile, "keys", "", "file of claim keys to check instead of the whole pool")
	sweepCmd.Flags().StringVar(&sweepOutJSON, "json", "", "output JSON path (optional, - for stdout)")
	sweepCmd.Flags().DurationVar(&sweepTimeout, "timeout", 10*time.Minute, "timeout for each sweep")
	sweepCmd.Flags().DurationVar(&sweepWatch, "watch", 0, "reload the data and sweep again at this interval")
}

func runSweep(cmd *cobra.Command, args []string) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := *appConfig
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	var keys []model.Key
	if keysFile != "" {
		k, err := worker.ReadKeysFromFile(keysFile)
		if err != nil {
			return fmt.Errorf("failed to read keys: %w", err)
		}
		if len(k) == 0 {
			return fmt.Errorf("no claim keys found in %s", keysFile)
		}
		keys = k
	}

	ctx, cancel := context.WithTimeout(sigCtx, sweepTimeout)
	p, err := openPipeline(ctx, &cfg)
	cancel()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Pool:     %d claims\n", p.Pool().Len())
		fmt.Fprintf(os.Stderr, "Workers:  %d\n", cfg.Concurrency.Workers)
		fmt.Fprintf(os.Stderr, "Timeout:  %v\n\n", sweepTimeout)
	}

	for {
		if err := sweepOnce(sigCtx, cmd, p, keys); err != nil {
			return err
		}
		if sweepWatch <= 0 {
			return nil
		}

		select {
		case <-sigCtx.Done():
			return nil
		case <-time.After(sweepWatch):
		}

		ctx, cancel := context.WithTimeout(sigCtx, sweepTimeout)
		err := p.Reload(ctx, cfg.Data)
		cancel()
		if err != nil {
			// keep watching with the pool as it was
			logger.Warn("reload failed", zap.Error(err))
			continue
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Reloaded pool: %d claims\n\n", p.Pool().Len())
		}
	}
}

func sweepOnce(parent context.Context, cmd *cobra.Command, p *pipeline.Pipeline, keys []model.Key) error {
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()

	report := p.Sweep(ctx, keys)

	if sweepOutJSON != "" {
		if err := pipeline.WriteJSON(report, sweepOutJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose && sweepOutJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", sweepOutJSON)
		}
	}
	if sweepOutJSON != "-" {
		pipeline.RenderSweepSummary(cmd.OutOrStdout(), report)
	}

	if err := ctx.Err(); err != nil {
		if sweepWatch > 0 && parent.Err() != nil {
			// interrupted while watching
			return nil
		}
		return fmt.Errorf("sweep incomplete: %w", err)
	}
	return nil
}
