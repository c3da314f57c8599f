package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/windowcapd/internal/admin"
	"github.com/allaspectsdev/windowcapd/internal/cache"
	"github.com/allaspectsdev/windowcapd/internal/capture"
	"github.com/allaspectsdev/windowcapd/internal/chunk"
	"github.com/allaspectsdev/windowcapd/internal/config"
	"github.com/allaspectsdev/windowcapd/internal/extract"
	"github.com/allaspectsdev/windowcapd/internal/ingest"
	"github.com/allaspectsdev/windowcapd/internal/metrics"
	"github.com/allaspectsdev/windowcapd/internal/phash"
	"github.com/allaspectsdev/windowcapd/internal/privacy"
	"github.com/allaspectsdev/windowcapd/internal/router"
	"github.com/allaspectsdev/windowcapd/internal/store"
	"github.com/allaspectsdev/windowcapd/internal/tracing"
	"github.com/allaspectsdev/windowcapd/internal/tracker"
	"github.com/allaspectsdev/windowcapd/internal/vault"
	"github.com/allaspectsdev/windowcapd/internal/version"
)

// Run is the main daemon orchestrator. It initialises every pipeline
// stage — Window Tracker, Capture Service, Change Detector, Extractor
// Router, Ingestion Core — starts the admin API, and blocks until a
// shutdown signal is received.
func Run(cfg *config.Config, foreground bool) error {
	// 1. Set up zerolog logger.
	dataDir := expandHome(cfg.Server.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	zerolog.SetGlobalLevel(logLevel)

	writers := []io.Writer{}

	// Always log to file.
	logPath := filepath.Join(dataDir, "windowcapd.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer logFile.Close()
	writers = append(writers, logFile)

	// If foreground, also write to stdout with console formatting.
	if foreground {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
		writers = append(writers, consoleWriter)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	log.Logger = zerolog.New(multi).With().Timestamp().Str("service", "windowcapd").Logger()

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Bool("foreground", foreground).
		Msg("windowcapd starting")

	// 2. Check if already running.
	if IsRunning(dataDir) {
		return fmt.Errorf("windowcapd is already running (PID file exists at %s)", filepath.Join(dataDir, pidFilename))
	}

	// 3. Open store.
	dbPath := filepath.Join(dataDir, "windowcapd.db")
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	log.Info().Str("db_path", dbPath).Msg("store opened")

	// 4. Create metrics collector.
	collector := metrics.NewCollector()

	// 5. Write PID file.
	if err := WritePID(dataDir); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() {
		if err := RemovePID(dataDir); err != nil {
			log.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	log.Info().Int("pid", os.Getpid()).Msg("PID file written")

	// 6. Start config watcher.
	configFile := config.ConfigFilePath()
	if configFile == "" {
		configFile = filepath.Join(dataDir, config.DefaultConfigFilename)
	}

	var watcher *config.Watcher
	if _, statErr := os.Stat(configFile); statErr == nil {
		w, watchErr := config.Watch(configFile)
		if watchErr != nil {
			log.Warn().Err(watchErr).Msg("failed to start config watcher; continuing without hot-reload")
		} else {
			watcher = w
			defer watcher.Close()
			watcher.OnChange(func(old, newCfg *config.Config) {
				log.Info().Msg("configuration reloaded")
				newLevel := parseLogLevel(newCfg.Server.LogLevel)
				zerolog.SetGlobalLevel(newLevel)
			})
			log.Info().Str("file", configFile).Msg("config watcher started")
		}
	}

	// 7. Start periodic data pruning.
	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	defer pruneCancel()
	prunerDone := make(chan struct{})
	go func() {
		defer close(prunerDone)
		runPruner(pruneCtx, st, cfg.Metrics.RetentionDays)
	}()

	// ---------------------------------------------------------------
	// 8. Wire up the capture pipeline.
	// ---------------------------------------------------------------

	// 8a. Resolve the ingestion socket's auth token, if configured. The
	// socket itself enforces no handshake yet (see DESIGN.md); resolving
	// it here surfaces a misconfigured key reference at startup instead
	// of silently letting every local peer connect.
	if cfg.Auth.Enabled {
		v := vault.New()
		if _, err := v.ResolveKeyRef(cfg.Auth.TokenRef); err != nil {
			log.Warn().Err(err).Msg("ingestion auth is enabled but the configured token_ref could not be resolved")
		} else {
			log.Info().Msg("ingestion auth token resolved")
		}
	}

	// 8b. Window Tracker.
	trk := tracker.New(tracker.NewPlatformEnumerator(), tracker.Config{
		MinWidth:           cfg.Tracker.MinWidth,
		MinHeight:          cfg.Tracker.MinHeight,
		OcclusionThreshold: cfg.Tracker.OcclusionThreshold,
	})

	// 8c. Capture Service.
	captureSvc := capture.New(
		capture.NewPlatformSource(),
		time.Duration(cfg.Capture.UncapturableCooldownSeconds)*time.Second,
		cfg.Capture.MemoTableSize,
	)

	// 8d. Change Detector.
	detector := phash.New(cfg.Detector.ChangeThreshold, time.Duration(cfg.Detector.MaxExtractionAgeSeconds)*time.Second)

	// 8e. Privacy Filter.
	filter := privacy.New(cfg.Privacy.BlacklistApps, cfg.Privacy.BlacklistTitlePatterns)

	// 8f. Extractor Router: circuit breaker registry, accessibility and
	// OCR backends, and the registry that routes each window to one.
	breakers := extract.NewCircuitBreakerRegistry(
		cfg.Extract.CircuitBreakerFailureThreshold,
		time.Duration(cfg.Extract.CircuitBreakerCooldownSeconds)*time.Second,
	)
	accessibility := extract.NewAccessibilityBackend(
		cfg.Extract.AccessibilityBinaryPath,
		time.Duration(cfg.Extract.AccessibilityTimeoutSeconds)*time.Second,
		breakers,
	)
	ocr := extract.NewOCRBackend(extract.PlatformOCR())
	registry := extract.NewRegistry(
		cfg.Extract.Browsers,
		cfg.Extract.AccessibilityApps,
		time.Duration(cfg.Extract.BrowserSilenceSeconds)*time.Second,
	)

	// 8g. Dedup cache and chunker feed the Ingestion Core's Processor.
	dedupCache, err := cache.New(st, cfg.Cache.TTLSeconds, cfg.Cache.MaxMemoryEntries)
	if err != nil {
		return fmt.Errorf("creating dedup cache: %w", err)
	}
	chunker := chunk.New(chunk.Config{MaxTokens: cfg.Chunk.MaxTokens, OverlapTokens: cfg.Chunk.OverlapTokens})

	// registry doubles as the Processor's PushNotifier: a browser push that
	// carries a bundle_id tells the registry that bundle id is still alive,
	// so the router keeps preferring the push channel over accessibility/OCR
	// for it. Payloads from cmd/nmrelay carry no bundle_id and do not
	// refresh it.
	proc := ingest.NewProcessor(st, dedupCache, chunker, cfg.Ingest.LockShardCount, registry)

	ingestCfg := ingest.Config{
		SocketPath:   cfg.Ingest.SocketPath,
		ReadTimeout:  time.Duration(cfg.Ingest.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Ingest.WriteTimeoutSeconds) * time.Second,
	}
	ingestSrv := ingest.NewServer(ingestCfg, proc)
	if err := ingestSrv.Listen(); err != nil {
		return fmt.Errorf("starting ingestion socket: %w", err)
	}
	log.Info().Str("socket", ingestSrv.SocketPath()).Msg("ingestion socket listening")

	errCh := make(chan error, 3)

	go func() {
		if err := ingestSrv.Serve(context.Background()); err != nil {
			errCh <- fmt.Errorf("ingestion socket: %w", err)
		}
	}()

	// 8h. Orchestrator: ties the tracker, capture service, detector,
	// privacy filter, extractor backends and the ingestion socket client
	// together into a tick loop.
	ingestClient := router.NewIngestClient(ingestSrv.SocketPath(), time.Duration(cfg.Ingest.ReadTimeoutSeconds)*time.Second)
	orchCfg := router.Config{
		TickInterval:             time.Duration(cfg.Router.TickIntervalMillis) * time.Millisecond,
		MaxConcurrentExtractions: cfg.Router.MaxConcurrentExtractions,
		ExtractionTimeout:        time.Duration(cfg.Router.ExtractionTimeoutSeconds) * time.Second,
	}
	orchestrator := router.New(orchCfg, trk, captureSvc, detector, filter, registry, accessibility, ocr, ingestClient)

	tickCtx, tickCancel := context.WithCancel(context.Background())
	defer tickCancel()
	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		orchestrator.Run(tickCtx)
	}()

	log.Info().
		Int("tick_interval_ms", cfg.Router.TickIntervalMillis).
		Int("max_concurrent_extractions", cfg.Router.MaxConcurrentExtractions).
		Msg("orchestrator tick loop started")

	// 8i. Tracing, if enabled.
	var tracingShutdown func(context.Context) error
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(context.Background(), cfg.Tracing.ServiceName, version.Version, cfg.Tracing.Exporter, cfg.Tracing.Endpoint, cfg.Tracing.SampleRate, cfg.Tracing.Insecure)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize tracing; continuing without it")
		} else {
			tracingShutdown = shutdown
			log.Info().Str("exporter", cfg.Tracing.Exporter).Msg("tracing initialized")
		}
	}

	// 9. Start the admin API, if enabled.
	var adminServer *admin.Server
	if cfg.Admin.Enabled {
		adminAddr := fmt.Sprintf(":%d", cfg.Admin.Port)
		adminServer = admin.NewServer(collector, st, cfg, adminAddr)

		go func() {
			if err := adminServer.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()

		log.Info().Int("admin_port", cfg.Admin.Port).Msg("windowcapd is ready")

		if foreground {
			fmt.Printf("\n  windowcapd is running!\n")
			fmt.Printf("  Admin API: http://localhost:%d\n\n", cfg.Admin.Port)
		}
	} else {
		log.Info().Msg("windowcapd is ready (admin API disabled)")
		if foreground {
			fmt.Printf("\n  windowcapd is running!\n\n")
		}
	}

	// 10. Wait for shutdown signal or fatal error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	// 11. Graceful shutdown with 30-second timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down...")

	tickCancel()
	<-tickDone

	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("admin server shutdown error")
		}
	}

	if err := ingestSrv.Close(); err != nil {
		log.Error().Err(err).Msg("ingestion socket shutdown error")
	}

	if tracingShutdown != nil {
		if err := tracingShutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown error")
		}
	}

	// 12. Clean up — wait for background goroutines before closing the store.
	pruneCancel()
	<-prunerDone
	st.Close()
	if err := RemovePID(dataDir); err != nil {
		log.Error().Err(err).Msg("failed to remove PID file during shutdown")
	}

	log.Info().Msg("windowcapd stopped")
	return nil
}

// Stop reads the PID file and sends SIGTERM to the running daemon.
func Stop() error {
	dataDir := expandHome(config.Get().Server.DataDir)

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("windowcapd does not appear to be running: %w", err)
	}

	if !isProcessAlive(pid) {
		// Stale PID file; clean it up.
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("windowcapd is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to windowcapd (PID %d)\n", pid)

	// Wait briefly for the process to exit.
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isProcessAlive(pid) {
			return nil
		}
	}

	return nil
}

// Status checks if the daemon is running and prints a summary fetched
// from the admin API.
func Status() error {
	cfg := config.Get()
	dataDir := expandHome(cfg.Server.DataDir)

	if !IsRunning(dataDir) {
		fmt.Println("windowcapd is not running")
		return nil
	}

	pid, _ := ReadPID(dataDir)
	fmt.Printf("windowcapd is running (PID %d)\n", pid)

	if !cfg.Admin.Enabled {
		fmt.Println("  (admin API disabled; no stats available)")
		return nil
	}

	statsURL := fmt.Sprintf("http://localhost:%d/api/stats", cfg.Admin.Port)
	client := &http.Client{Timeout: 3 * time.Second}

	resp, err := client.Get(statsURL)
	if err != nil {
		fmt.Println("  (admin API unreachable)")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	var stats struct {
		Store     store.Stats    `json:"store"`
		Collector *metrics.Stats `json:"collector"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil
	}

	if stats.Collector != nil {
		fmt.Printf("\n  Uptime:             %s\n", stats.Collector.Uptime)
		fmt.Printf("  Ticks:              %d\n", stats.Collector.TotalTicks)
		fmt.Printf("  Windows tracked:    %d\n", stats.Collector.WindowsTracked)
		fmt.Printf("  Documents ingested: %d\n", stats.Collector.TotalIngested)
		fmt.Printf("  Tokens ingested:    %d\n", stats.Collector.TokensIngested)
		fmt.Printf("  Cache hit rate:     %.1f%% (%d hits / %d misses)\n", stats.Collector.CacheHitRate, stats.Collector.CacheHits, stats.Collector.CacheMisses)
		fmt.Printf("  Active extractions: %d\n", stats.Collector.ActiveExtractions)
	}
	fmt.Printf("  Documents in store: %d\n", stats.Store.DocumentCount)
	fmt.Printf("  Chunks in store:    %d\n", stats.Store.ChunkCount)

	return nil
}

// runPruner periodically prunes old data from the store.
func runPruner(ctx context.Context, st *store.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error().Interface("panic", r).Msg("data pruner: recovered from panic")
					}
				}()
				n, err := st.Prune(retentionDays)
				if err != nil {
					log.Error().Err(err).Msg("data pruning failed")
				} else if n > 0 {
					log.Info().Int64("rows", n).Int("retention_days", retentionDays).Msg("pruned old data")
				}
			}()
		}
	}
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
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
