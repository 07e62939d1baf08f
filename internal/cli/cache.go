package cli

import (
	"fmt"

	"github.com/ppiankov/claimscope/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the eligibility verdict cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached verdict",
	Long: `Purge deletes the on-disk verdict cache (cache.dir) so the next evaluate
run asks the model again for every claim.`,
	Args: cobra.NoArgs,
	RunE: runCachePurge,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cfg := appConfig.Cache
	if cfg.Dir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No cache directory configured; nothing to purge")
		return nil
	}
	cfg.Enabled = true

	if err := cache.New(cfg).Purge(); err != nil {
		return fmt.Errorf("purge verdict cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Purged verdict cache: %s\n", cfg.Dir)
	return nil
}
