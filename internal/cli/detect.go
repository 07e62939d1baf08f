package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/pipeline"
	"github.com/ppiankov/claimscope/internal/validate"
	"github.com/spf13/cobra"
)

var (
	detectRings   string
	detectOutJSON string
	loadTimeout   time.Duration
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <claimant_id> <claim_id>",
	Short: "Find pooled claims whose boundaries overlap one claim",
	Long: `Detect builds the claim's polygon and reports every other claim in the
same village whose boundary intersects it.

Without --rings the boundary stored in the pool is used. --rings takes a
JSON list of rings, each a list of [longitude, latitude] positions, either
inline or from a file with the @path form.

Example:
  claimscope detect X1 T1 --pool pool.yaml
  claimscope detect X1 T1 --titles titles.csv --ifr ifr.geojson
  claimscope detect X9 NEW --pool pool.yaml --rings '[[[0,0],[1,0],[1,1],[0,1]]]'
  claimscope detect X9 NEW --pool pool.yaml --rings @boundary.json --json -`,
	Args: cobra.ExactArgs(2),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVar(&detectRings, "rings", "", "boundary rings as JSON, or @file")
	detectCmd.Flags().StringVar(&detectOutJSON, "json", "-", "output JSON path (- for stdout)")
	detectCmd.Flags().DurationVar(&loadTimeout, "load-timeout", time.Minute, "timeout for loading the data files")
}

func runDetect(cmd *cobra.Command, args []string) error {
	claimantID, claimID := args[0], args[1]
	if err := validate.ValidateKey(claimantID, claimID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	p, err := openPipeline(ctx, appConfig)
	if err != nil {
		return err
	}

	var res model.ConflictResult
	if detectRings == "" {
		res, err = p.DetectClaim(model.Key{ClaimantID: claimantID, ClaimID: claimID})
		if err != nil {
			return fmt.Errorf("%s,%s: %w (pass --rings to check a boundary that is not pooled)", claimantID, claimID, err)
		}
	} else {
		rings, err := readRings(detectRings)
		if err != nil {
			return err
		}
		res = p.Detect(claimantID, claimID, rings)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Checked %s,%s against %d pooled claims\n", claimantID, claimID, p.Pool().Len())
		fmt.Fprintf(os.Stderr, "✓ Found %d conflict(s)\n\n", len(res.Conflicts))
	}

	return pipeline.WriteJSON(res, detectOutJSON)
}

// readRings parses the --rings value, reading it from a file for the @path form
func readRings(value string) ([]model.Ring, error) {
	raw := []byte(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rings: %w", err)
		}
		raw = data
	}
	return validate.ParseRings(raw)
}
