package config

import "github.com/allaspectsdev/windowcapd/internal/extract"

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.windowcapd"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "windowcapd.toml"

// DefaultSocketPath is the default ingestion IPC socket path.
const DefaultSocketPath = "/tmp/windowcapd-ingestion.sock"

// DefaultTrackerMinWidth and DefaultTrackerMinHeight are the minimum
// window dimensions, in logical pixels, the tracker keeps.
const DefaultTrackerMinWidth = 50
const DefaultTrackerMinHeight = 50

// DefaultOcclusionThreshold is the fraction of a window's area that must
// be covered before it is classified as occluded.
const DefaultOcclusionThreshold = 0.9

// DefaultUncapturableCooldownSeconds is how long a window stays memoized
// as uncapturable after a failed capture.
const DefaultUncapturableCooldownSeconds = 30

// DefaultCaptureMemoTableSize bounds the uncapturable-window memo table.
const DefaultCaptureMemoTableSize = 256

// DefaultChangeThreshold is the maximum Hamming distance between two
// perceptual hashes still considered "unchanged".
const DefaultChangeThreshold = 5

// DefaultMaxExtractionAgeSeconds forces a re-extraction of an otherwise
// unchanged window after this many seconds.
const DefaultMaxExtractionAgeSeconds = 600

// DefaultBrowserSilenceSeconds is how long a browser window may go
// without a push before the registry demotes it to accessibility/OCR.
const DefaultBrowserSilenceSeconds = 60

// DefaultAccessibilityBinaryPath is the path to the accessibility helper
// subprocess invoked per extraction.
const DefaultAccessibilityBinaryPath = "/usr/local/libexec/windowcapd-accessibility-helper"

// DefaultAccessibilityTimeoutSeconds bounds how long the accessibility
// helper subprocess may run before being killed.
const DefaultAccessibilityTimeoutSeconds = 5

// DefaultCircuitBreakerFailureThreshold is the number of consecutive
// accessibility-helper failures before its circuit opens.
const DefaultCircuitBreakerFailureThreshold = 5

// DefaultCircuitBreakerCooldownSeconds is how long an open circuit stays
// open before allowing another attempt.
const DefaultCircuitBreakerCooldownSeconds = 60

// DefaultTickIntervalMillis is the router's tick cadence.
const DefaultTickIntervalMillis = 1000

// DefaultMaxConcurrentExtractions bounds how many extractions may run at
// once across all windows.
const DefaultMaxConcurrentExtractions = 4

// DefaultExtractionTimeoutSeconds bounds a single window's capture plus
// extraction.
const DefaultExtractionTimeoutSeconds = 10

// DefaultIngestReadTimeoutSeconds and DefaultIngestWriteTimeoutSeconds
// bound one read/write on an ingestion socket connection.
const DefaultIngestReadTimeoutSeconds = 5
const DefaultIngestWriteTimeoutSeconds = 5

// DefaultLockShardCount bounds the ingestion core's per-doc_id lock table.
const DefaultLockShardCount = 64

// DefaultChunkMaxTokens and DefaultChunkOverlapTokens are the chunker's
// default word-mode sizing.
const DefaultChunkMaxTokens = 1024
const DefaultChunkOverlapTokens = 100

// DefaultCacheTTLSeconds and DefaultCacheMaxMemoryEntries size the dedup
// cache's in-memory tier.
const DefaultCacheTTLSeconds = 300
const DefaultCacheMaxMemoryEntries = 10000

// DefaultTracingExporter is the default tracing exporter type.
const DefaultTracingExporter = "otlp-grpc"

// DefaultTracingEndpoint is the default OTLP collector endpoint.
const DefaultTracingEndpoint = "localhost:4317"

// DefaultTracingServiceName is the default service name for traces.
const DefaultTracingServiceName = "windowcapd"

// DefaultTracingSampleRate is the default sampling rate (1.0 = 100%).
const DefaultTracingSampleRate = 1.0

// DefaultAdminPort is the default port for the read-only admin API.
const DefaultAdminPort = 7679

// DefaultRetentionDays is how long documents and chunks are retained
// before the pruner deletes them.
const DefaultRetentionDays = 90

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidTracingExporters lists the allowed tracing exporter values.
var ValidTracingExporters = []string{"stdout", "otlp-grpc", "otlp-http"}

// DefaultBrowsers is the seeded bundle-id set routed to the browser push
// channel while it is alive. Mirrors internal/extract.DefaultBrowsers,
// which is the canonical seed table (Safari is deliberately absent there).
var DefaultBrowsers = extract.DefaultBrowsers

// DefaultAccessibilityApps is the seeded bundle-id set routed to the
// accessibility subprocess. Mirrors internal/extract.DefaultAccessibilityApps.
var DefaultAccessibilityApps = extract.DefaultAccessibilityApps

// DefaultAllowedOrigins is the default CORS allow-list for the admin API.
var DefaultAllowedOrigins = []string{"http://localhost:7679"}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel: DefaultLogLevel,
			DataDir:  DefaultDataDir,
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenRef: "",
		},
		Tracker: TrackerConfig{
			MinWidth:           DefaultTrackerMinWidth,
			MinHeight:          DefaultTrackerMinHeight,
			OcclusionThreshold: DefaultOcclusionThreshold,
		},
		Capture: CaptureConfig{
			UncapturableCooldownSeconds: DefaultUncapturableCooldownSeconds,
			MemoTableSize:               DefaultCaptureMemoTableSize,
		},
		Detector: DetectorConfig{
			ChangeThreshold:         DefaultChangeThreshold,
			MaxExtractionAgeSeconds: DefaultMaxExtractionAgeSeconds,
		},
		Privacy: PrivacyConfig{
			BlacklistApps:          nil,
			BlacklistTitlePatterns: nil,
		},
		Extract: ExtractConfig{
			Browsers:                       DefaultBrowsers,
			AccessibilityApps:              DefaultAccessibilityApps,
			BrowserSilenceSeconds:          DefaultBrowserSilenceSeconds,
			AccessibilityBinaryPath:        DefaultAccessibilityBinaryPath,
			AccessibilityTimeoutSeconds:    DefaultAccessibilityTimeoutSeconds,
			CircuitBreakerFailureThreshold: DefaultCircuitBreakerFailureThreshold,
			CircuitBreakerCooldownSeconds:  DefaultCircuitBreakerCooldownSeconds,
		},
		Router: RouterConfig{
			TickIntervalMillis:       DefaultTickIntervalMillis,
			MaxConcurrentExtractions: DefaultMaxConcurrentExtractions,
			ExtractionTimeoutSeconds: DefaultExtractionTimeoutSeconds,
		},
		Ingest: IngestConfig{
			SocketPath:          DefaultSocketPath,
			ReadTimeoutSeconds:  DefaultIngestReadTimeoutSeconds,
			WriteTimeoutSeconds: DefaultIngestWriteTimeoutSeconds,
			LockShardCount:      DefaultLockShardCount,
		},
		Chunk: ChunkConfig{
			MaxTokens:     DefaultChunkMaxTokens,
			OverlapTokens: DefaultChunkOverlapTokens,
		},
		Cache: CacheConfig{
			TTLSeconds:       DefaultCacheTTLSeconds,
			MaxMemoryEntries: DefaultCacheMaxMemoryEntries,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    DefaultTracingExporter,
			Endpoint:    DefaultTracingEndpoint,
			ServiceName: DefaultTracingServiceName,
			SampleRate:  DefaultTracingSampleRate,
			Insecure:    false,
		},
		Admin: AdminConfig{
			Enabled:        true,
			Port:           DefaultAdminPort,
			AllowedOrigins: DefaultAllowedOrigins,
		},
		Metrics: MetricsConfig{
			RetentionDays: DefaultRetentionDays,
		},
	}
}
