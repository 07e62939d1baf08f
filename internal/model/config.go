package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete claimscope configuration
type Config struct {
	Data         DataConfig         `yaml:"data" mapstructure:"data"`
	Detection    DetectionConfig    `yaml:"detection" mapstructure:"detection"`
	Eligibility  EligibilityConfig  `yaml:"eligibility" mapstructure:"eligibility"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the reference data the pool is assembled from.
// PoolFile wins when set; otherwise titles are joined with the boundary layers.
type DataConfig struct {
	PoolFile   string        `yaml:"pool_file" mapstructure:"pool_file"`
	TitlesCSV  string        `yaml:"titles_csv" mapstructure:"titles_csv"`
	Boundaries BoundaryFiles `yaml:"boundaries" mapstructure:"boundaries"`
}

// BoundaryFiles holds one GeoJSON layer per claim kind
type BoundaryFiles struct {
	IFR string `yaml:"ifr" mapstructure:"ifr"`
	CR  string `yaml:"cr" mapstructure:"cr"`
	CFR string `yaml:"cfr" mapstructure:"cfr"`
}

// Layers returns the configured layers keyed by claim kind, skipping empty paths
func (b BoundaryFiles) Layers() map[ClaimKind]string {
	layers := make(map[ClaimKind]string)
	if b.IFR != "" {
		layers[ClaimKindIndividual] = b.IFR
	}
	if b.CR != "" {
		layers[ClaimKindCommunity] = b.CR
	}
	if b.CFR != "" {
		layers[ClaimKindForest] = b.CFR
	}
	return layers
}

// DetectionConfig tunes the conflict detector
type DetectionConfig struct {
	CacheShapes   bool          `yaml:"cache_shapes" mapstructure:"cache_shapes"`
	ShapeCacheTTL time.Duration `yaml:"shape_cache_ttl" mapstructure:"shape_cache_ttl"`
}

// EligibilityConfig holds the deterministic rule thresholds
type EligibilityConfig struct {
	AreaCapHectares float64 `yaml:"area_cap_hectares" mapstructure:"area_cap_hectares"`
	MaxAttempts     int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	FallbackToRules bool    `yaml:"fallback_to_rules" mapstructure:"fallback_to_rules"`
	WriteBack       bool    `yaml:"write_back" mapstructure:"write_back"`
}

// LLMConfig configures the optional text-model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, gemini, ollama, or empty
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the verdict cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the sweep worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits calls to the text-model provider.
// Providers overrides the default per provider name (openai, gemini, ollama).
type RateLimitingConfig struct {
	RequestsPerSecond float64                 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int                     `yaml:"burst_size" mapstructure:"burst_size"`
	Providers         map[string]ProviderRate `yaml:"providers,omitempty" mapstructure:"providers"`
}

// ProviderRate is the call budget for one provider
type ProviderRate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "claimscope-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".claimscope", "cache")
	}

	return &Config{
		Detection: DetectionConfig{
			CacheShapes:   true,
			ShapeCacheTTL: 30 * time.Minute,
		},
		Eligibility: EligibilityConfig{
			AreaCapHectares: 4.0,
			MaxAttempts:     3,
			FallbackToRules: true,
			WriteBack:       true,
		},
		LLM: LLMConfig{
			Provider:    "", // Disabled by default
			Timeout:     30,
			MaxTokens:   1000,
			Temperature: 0.2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
