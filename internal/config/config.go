package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for the capture daemon.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  toml:"server"`
	Auth    AuthConfig    `mapstructure:"auth"    toml:"auth"`
	Tracker TrackerConfig `mapstructure:"tracker" toml:"tracker"`
	Capture CaptureConfig `mapstructure:"capture" toml:"capture"`
	Detector DetectorConfig `mapstructure:"detector" toml:"detector"`
	Privacy PrivacyConfig `mapstructure:"privacy" toml:"privacy"`
	Extract ExtractConfig `mapstructure:"extract" toml:"extract"`
	Router  RouterConfig  `mapstructure:"router"  toml:"router"`
	Ingest  IngestConfig  `mapstructure:"ingest"  toml:"ingest"`
	Chunk   ChunkConfig   `mapstructure:"chunk"   toml:"chunk"`
	Cache   CacheConfig   `mapstructure:"cache"   toml:"cache"`
	Tracing TracingConfig `mapstructure:"tracing" toml:"tracing"`
	Admin   AdminConfig   `mapstructure:"admin"   toml:"admin"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
}

// ServerConfig holds the daemon-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" toml:"log_level"`
	DataDir  string `mapstructure:"data_dir"  toml:"data_dir"`
}

// AuthConfig names the shared-secret token for the ingestion socket. When
// Enabled, the daemon resolves TokenRef at startup and logs the outcome;
// the socket itself does not check connecting clients for the token.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"  toml:"enabled"`
	TokenRef string `mapstructure:"token_ref" toml:"token_ref"`
}

// TrackerConfig controls the Window Tracker's filtering thresholds.
type TrackerConfig struct {
	MinWidth           int     `mapstructure:"min_width"          toml:"min_width"`
	MinHeight          int     `mapstructure:"min_height"         toml:"min_height"`
	OcclusionThreshold float64 `mapstructure:"occlusion_threshold" toml:"occlusion_threshold"`
}

// CaptureConfig controls the Capture Service's uncapturable-window memoization.
type CaptureConfig struct {
	UncapturableCooldownSeconds int `mapstructure:"uncapturable_cooldown_seconds" toml:"uncapturable_cooldown_seconds"`
	MemoTableSize               int `mapstructure:"memo_table_size"               toml:"memo_table_size"`
}

// DetectorConfig controls the perceptual-hash change detector.
type DetectorConfig struct {
	ChangeThreshold      int `mapstructure:"change_threshold"         toml:"change_threshold"`
	MaxExtractionAgeSeconds int `mapstructure:"max_extraction_age_seconds" toml:"max_extraction_age_seconds"`
}

// PrivacyConfig controls the Privacy Filter's blacklists. Empty lists fall
// back to the package's built-in defaults.
type PrivacyConfig struct {
	BlacklistApps          []string `mapstructure:"blacklist_apps"           toml:"blacklist_apps"`
	BlacklistTitlePatterns []string `mapstructure:"blacklist_title_patterns" toml:"blacklist_title_patterns"`
}

// ExtractConfig controls the Extractor Registry and its backends.
type ExtractConfig struct {
	Browsers                  []string `mapstructure:"browsers"                     toml:"browsers"`
	AccessibilityApps         []string `mapstructure:"accessibility_apps"           toml:"accessibility_apps"`
	BrowserSilenceSeconds     int      `mapstructure:"browser_silence_seconds"      toml:"browser_silence_seconds"`
	AccessibilityBinaryPath   string   `mapstructure:"accessibility_binary_path"    toml:"accessibility_binary_path"`
	AccessibilityTimeoutSeconds int    `mapstructure:"accessibility_timeout_seconds" toml:"accessibility_timeout_seconds"`
	CircuitBreakerFailureThreshold int `mapstructure:"circuit_breaker_failure_threshold" toml:"circuit_breaker_failure_threshold"`
	CircuitBreakerCooldownSeconds  int `mapstructure:"circuit_breaker_cooldown_seconds"  toml:"circuit_breaker_cooldown_seconds"`
}

// RouterConfig controls the tick-loop orchestrator.
type RouterConfig struct {
	TickIntervalMillis       int `mapstructure:"tick_interval_millis"       toml:"tick_interval_millis"`
	MaxConcurrentExtractions int `mapstructure:"max_concurrent_extractions" toml:"max_concurrent_extractions"`
	ExtractionTimeoutSeconds int `mapstructure:"extraction_timeout_seconds" toml:"extraction_timeout_seconds"`
}

// IngestConfig controls the Ingestion Core's IPC socket server.
type IngestConfig struct {
	SocketPath          string `mapstructure:"socket_path"            toml:"socket_path"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"   toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"  toml:"write_timeout_seconds"`
	LockShardCount      int    `mapstructure:"lock_shard_count"       toml:"lock_shard_count"`
}

// ChunkConfig controls the chunker's token sizing.
type ChunkConfig struct {
	MaxTokens     int `mapstructure:"max_tokens"     toml:"max_tokens"`
	OverlapTokens int `mapstructure:"overlap_tokens" toml:"overlap_tokens"`
}

// CacheConfig controls the doc-id to content-hash dedup cache.
type CacheConfig struct {
	TTLSeconds       int `mapstructure:"ttl_seconds"        toml:"ttl_seconds"`
	MaxMemoryEntries int `mapstructure:"max_memory_entries" toml:"max_memory_entries"`
}

// TracingConfig controls OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"      toml:"enabled"`
	Exporter    string  `mapstructure:"exporter"     toml:"exporter"`     // "stdout", "otlp-grpc", "otlp-http"
	Endpoint    string  `mapstructure:"endpoint"     toml:"endpoint"`     // e.g. "localhost:4317"
	ServiceName string  `mapstructure:"service_name" toml:"service_name"` // defaults to "windowcapd"
	SampleRate  float64 `mapstructure:"sample_rate"  toml:"sample_rate"`  // 0.0 to 1.0
	Insecure    bool    `mapstructure:"insecure"     toml:"insecure"`     // skip TLS for dev
}

// AdminConfig controls the read-only document/chunk admin HTTP API.
type AdminConfig struct {
	Enabled        bool     `mapstructure:"enabled"         toml:"enabled"`
	Port           int      `mapstructure:"port"            toml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// MetricsConfig controls metrics retention and the document store pruner.
type MetricsConfig struct {
	RetentionDays int `mapstructure:"retention_days" toml:"retention_days"`
}

// Load reads configuration from disk with the following precedence:
//  1. Environment variables (WINDOWCAPD_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.windowcapd/windowcapd.toml
//  4. ./windowcapd.toml
//  5. Built-in defaults
//
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	setViperDefaults(v)

	v.SetEnvPrefix("WINDOWCAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".windowcapd"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("windowcapd")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)
	if cfg.Ingest.SocketPath == "" {
		cfg.Ingest.SocketPath = DefaultSocketPath
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// InitConfig writes the default configuration file to ~/.windowcapd/windowcapd.toml.
// If the file already exists it is not overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".windowcapd")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ExportConfig writes the current config to the given path in TOML format.
func ExportConfig(path string) error {
	cfg := Get()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ImportConfig reads a TOML config file and merges it into the current config.
// The imported config is also persisted to the active config file so changes
// survive restarts.
func ImportConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return err
	}
	set(cfg)

	if dest := ConfigFilePath(); dest != "" {
		out, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshalling config for persistence: %w", err)
		}
		if err := os.WriteFile(dest, out, 0o600); err != nil {
			return fmt.Errorf("persisting imported config: %w", err)
		}
	}

	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so that env var binding
// works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.data_dir", d.Server.DataDir)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.token_ref", d.Auth.TokenRef)

	v.SetDefault("tracker.min_width", d.Tracker.MinWidth)
	v.SetDefault("tracker.min_height", d.Tracker.MinHeight)
	v.SetDefault("tracker.occlusion_threshold", d.Tracker.OcclusionThreshold)

	v.SetDefault("capture.uncapturable_cooldown_seconds", d.Capture.UncapturableCooldownSeconds)
	v.SetDefault("capture.memo_table_size", d.Capture.MemoTableSize)

	v.SetDefault("detector.change_threshold", d.Detector.ChangeThreshold)
	v.SetDefault("detector.max_extraction_age_seconds", d.Detector.MaxExtractionAgeSeconds)

	v.SetDefault("privacy.blacklist_apps", d.Privacy.BlacklistApps)
	v.SetDefault("privacy.blacklist_title_patterns", d.Privacy.BlacklistTitlePatterns)

	v.SetDefault("extract.browsers", d.Extract.Browsers)
	v.SetDefault("extract.accessibility_apps", d.Extract.AccessibilityApps)
	v.SetDefault("extract.browser_silence_seconds", d.Extract.BrowserSilenceSeconds)
	v.SetDefault("extract.accessibility_binary_path", d.Extract.AccessibilityBinaryPath)
	v.SetDefault("extract.accessibility_timeout_seconds", d.Extract.AccessibilityTimeoutSeconds)
	v.SetDefault("extract.circuit_breaker_failure_threshold", d.Extract.CircuitBreakerFailureThreshold)
	v.SetDefault("extract.circuit_breaker_cooldown_seconds", d.Extract.CircuitBreakerCooldownSeconds)

	v.SetDefault("router.tick_interval_millis", d.Router.TickIntervalMillis)
	v.SetDefault("router.max_concurrent_extractions", d.Router.MaxConcurrentExtractions)
	v.SetDefault("router.extraction_timeout_seconds", d.Router.ExtractionTimeoutSeconds)

	v.SetDefault("ingest.socket_path", d.Ingest.SocketPath)
	v.SetDefault("ingest.read_timeout_seconds", d.Ingest.ReadTimeoutSeconds)
	v.SetDefault("ingest.write_timeout_seconds", d.Ingest.WriteTimeoutSeconds)
	v.SetDefault("ingest.lock_shard_count", d.Ingest.LockShardCount)

	v.SetDefault("chunk.max_tokens", d.Chunk.MaxTokens)
	v.SetDefault("chunk.overlap_tokens", d.Chunk.OverlapTokens)

	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("cache.max_memory_entries", d.Cache.MaxMemoryEntries)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	v.SetDefault("admin.enabled", d.Admin.Enabled)
	v.SetDefault("admin.port", d.Admin.Port)
	v.SetDefault("admin.allowed_origins", d.Admin.AllowedOrigins)

	v.SetDefault("metrics.retention_days", d.Metrics.RetentionDays)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
