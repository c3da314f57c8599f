package config

import (
	"fmt"
	"strings"
)

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	if !isValidEnum(cfg.Server.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("server.log_level must be one of %v, got %q", ValidLogLevels, cfg.Server.LogLevel))
	}
	if cfg.Server.DataDir == "" {
		errs = append(errs, "server.data_dir must not be empty")
	}

	if cfg.Auth.Enabled && cfg.Auth.TokenRef == "" {
		errs = append(errs, "auth.token_ref must be set when auth.enabled is true")
	}

	if cfg.Tracker.MinWidth < 0 {
		errs = append(errs, fmt.Sprintf("tracker.min_width must be non-negative, got %d", cfg.Tracker.MinWidth))
	}
	if cfg.Tracker.MinHeight < 0 {
		errs = append(errs, fmt.Sprintf("tracker.min_height must be non-negative, got %d", cfg.Tracker.MinHeight))
	}
	if cfg.Tracker.OcclusionThreshold < 0 || cfg.Tracker.OcclusionThreshold > 1 {
		errs = append(errs, fmt.Sprintf("tracker.occlusion_threshold must be between 0 and 1, got %f", cfg.Tracker.OcclusionThreshold))
	}

	if cfg.Capture.UncapturableCooldownSeconds < 0 {
		errs = append(errs, fmt.Sprintf("capture.uncapturable_cooldown_seconds must be non-negative, got %d", cfg.Capture.UncapturableCooldownSeconds))
	}
	if cfg.Capture.MemoTableSize < 1 {
		errs = append(errs, fmt.Sprintf("capture.memo_table_size must be at least 1, got %d", cfg.Capture.MemoTableSize))
	}

	if cfg.Detector.ChangeThreshold < 0 {
		errs = append(errs, fmt.Sprintf("detector.change_threshold must be non-negative, got %d", cfg.Detector.ChangeThreshold))
	}
	if cfg.Detector.MaxExtractionAgeSeconds < 0 {
		errs = append(errs, fmt.Sprintf("detector.max_extraction_age_seconds must be non-negative, got %d", cfg.Detector.MaxExtractionAgeSeconds))
	}

	if cfg.Extract.BrowserSilenceSeconds < 0 {
		errs = append(errs, fmt.Sprintf("extract.browser_silence_seconds must be non-negative, got %d", cfg.Extract.BrowserSilenceSeconds))
	}
	if cfg.Extract.AccessibilityBinaryPath == "" {
		errs = append(errs, "extract.accessibility_binary_path must not be empty")
	}
	if cfg.Extract.AccessibilityTimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("extract.accessibility_timeout_seconds must be at least 1, got %d", cfg.Extract.AccessibilityTimeoutSeconds))
	}
	if cfg.Extract.CircuitBreakerFailureThreshold < 1 {
		errs = append(errs, fmt.Sprintf("extract.circuit_breaker_failure_threshold must be at least 1, got %d", cfg.Extract.CircuitBreakerFailureThreshold))
	}
	if cfg.Extract.CircuitBreakerCooldownSeconds < 1 {
		errs = append(errs, fmt.Sprintf("extract.circuit_breaker_cooldown_seconds must be at least 1, got %d", cfg.Extract.CircuitBreakerCooldownSeconds))
	}

	if cfg.Router.TickIntervalMillis < 1 {
		errs = append(errs, fmt.Sprintf("router.tick_interval_millis must be at least 1, got %d", cfg.Router.TickIntervalMillis))
	}
	if cfg.Router.MaxConcurrentExtractions < 1 {
		errs = append(errs, fmt.Sprintf("router.max_concurrent_extractions must be at least 1, got %d", cfg.Router.MaxConcurrentExtractions))
	}
	if cfg.Router.ExtractionTimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("router.extraction_timeout_seconds must be at least 1, got %d", cfg.Router.ExtractionTimeoutSeconds))
	}

	if cfg.Ingest.SocketPath == "" {
		errs = append(errs, "ingest.socket_path must not be empty")
	}
	if cfg.Ingest.ReadTimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("ingest.read_timeout_seconds must be at least 1, got %d", cfg.Ingest.ReadTimeoutSeconds))
	}
	if cfg.Ingest.WriteTimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("ingest.write_timeout_seconds must be at least 1, got %d", cfg.Ingest.WriteTimeoutSeconds))
	}
	if cfg.Ingest.LockShardCount < 1 {
		errs = append(errs, fmt.Sprintf("ingest.lock_shard_count must be at least 1, got %d", cfg.Ingest.LockShardCount))
	}

	if cfg.Chunk.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("chunk.max_tokens must be at least 1, got %d", cfg.Chunk.MaxTokens))
	}
	if cfg.Chunk.OverlapTokens < 0 {
		errs = append(errs, fmt.Sprintf("chunk.overlap_tokens must be non-negative, got %d", cfg.Chunk.OverlapTokens))
	}
	if cfg.Chunk.OverlapTokens >= cfg.Chunk.MaxTokens {
		errs = append(errs, fmt.Sprintf("chunk.overlap_tokens (%d) must be less than chunk.max_tokens (%d)", cfg.Chunk.OverlapTokens, cfg.Chunk.MaxTokens))
	}

	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, fmt.Sprintf("cache.ttl_seconds must be non-negative, got %d", cfg.Cache.TTLSeconds))
	}
	if cfg.Cache.MaxMemoryEntries < 1 {
		errs = append(errs, fmt.Sprintf("cache.max_memory_entries must be at least 1, got %d", cfg.Cache.MaxMemoryEntries))
	}

	if cfg.Tracing.Enabled {
		if !isValidEnum(cfg.Tracing.Exporter, ValidTracingExporters) {
			errs = append(errs, fmt.Sprintf("tracing.exporter must be one of %v, got %q", ValidTracingExporters, cfg.Tracing.Exporter))
		}
		if cfg.Tracing.ServiceName == "" {
			errs = append(errs, "tracing.service_name must not be empty when tracing is enabled")
		}
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("tracing.sample_rate must be between 0 and 1, got %f", cfg.Tracing.SampleRate))
	}

	if cfg.Admin.Enabled && (cfg.Admin.Port < 1 || cfg.Admin.Port > 65535) {
		errs = append(errs, fmt.Sprintf("admin.port must be between 1 and 65535, got %d", cfg.Admin.Port))
	}

	if cfg.Metrics.RetentionDays < 1 {
		errs = append(errs, fmt.Sprintf("metrics.retention_days must be at least 1, got %d", cfg.Metrics.RetentionDays))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum returns true if val is in the allowed list (case-insensitive).
func isValidEnum(val string, allowed []string) bool {
	lower := strings.ToLower(val)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
