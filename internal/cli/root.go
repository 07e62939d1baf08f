package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/claimscope/internal/ingest"
	"github.com/ppiankov/claimscope/internal/logging"
	"github.com/ppiankov/claimscope/internal/model"
	"github.com/ppiankov/claimscope/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool

	appConfig *model.Config
	logger    = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimscope",
	Short: "claimscope - land claim overlap detection and FRA eligibility review",
	Long: `claimscope checks forest land claims against a pool of existing claims.

It builds polygons from claim boundaries, reports every other claim in the
same village whose boundary overlaps, and produces eligibility verdicts
under the Forest Rights Act rules, optionally asking a text model to review
each application.

Data is read from a pool file, or from a titles register joined with the
IFR, CR and CFR boundary layers.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.New(cfg.Log.Level, verbose)
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimscope/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	// Data flags
	flags.String("pool", "", "pool file (YAML) with complete application records")
	flags.String("titles", "", "titles register CSV")
	flags.String("ifr", "", "GeoJSON boundaries for individual forest rights")
	flags.String("cr", "", "GeoJSON boundaries for community rights")
	flags.String("cfr", "", "GeoJSON boundaries for community forest resource rights")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("data.pool_file", flags.Lookup("pool"))
	_ = viper.BindPFlag("data.titles_csv", flags.Lookup("titles"))
	_ = viper.BindPFlag("data.boundaries.ifr", flags.Lookup("ifr"))
	_ = viper.BindPFlag("data.boundaries.cr", flags.Lookup("cr"))
	_ = viper.BindPFlag("data.boundaries.cfr", flags.Lookup("cfr"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".claimscope"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CLAIMSCOPE_*, e.g. CLAIMSCOPE_DATA_POOL_FILE
	viper.SetEnvPrefix("CLAIMSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file, environment and flags over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	return cfg, nil
}

// openPipeline loads the configured data and builds a pipeline over it
func openPipeline(ctx context.Context, cfg *model.Config) (*pipeline.Pipeline, error) {
	p, err := pipeline.New(ctx, cfg, logger)
	if errors.Is(err, ingest.ErrNoSource) {
		return nil, fmt.Errorf("%w: set --pool, or --titles with --ifr/--cr/--cfr", err)
	}
	return p, err
}
