package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nonexistent.toml"))
	if err == nil {
		_ = cfg
	}
}

func TestLoad_WithExplicitFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test.toml")

	content := `
[server]
log_level = "debug"
data_dir = "` + dir + `"

[router]
tick_interval_millis = 2000
max_concurrent_extractions = 8
extraction_timeout_seconds = 15
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want %q", cfg.Server.LogLevel, "debug")
	}
	if cfg.Router.TickIntervalMillis != 2000 {
		t.Errorf("TickIntervalMillis: got %d, want 2000", cfg.Router.TickIntervalMillis)
	}
	if cfg.Router.MaxConcurrentExtractions != 8 {
		t.Errorf("MaxConcurrentExtractions: got %d, want 8", cfg.Router.MaxConcurrentExtractions)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test.toml")

	content := `
[server]
log_level = "info"
data_dir = "` + dir + `"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("WINDOWCAPD_ROUTER_MAX_CONCURRENT_EXTRACTIONS", "12")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Router.MaxConcurrentExtractions != 12 {
		t.Errorf("MaxConcurrentExtractions with env override: got %d, want 12", cfg.Router.MaxConcurrentExtractions)
	}
}

func TestLoad_ValidationFailure_BadLogLevel(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.toml")

	content := `
[server]
log_level = "not-a-level"
data_dir = "` + dir + `"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error for bad log level")
	}
}

func TestLoad_ValidationFailure_ChunkOverlapTooLarge(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad-chunk.toml")

	content := `
[server]
log_level = "info"
data_dir = "` + dir + `"

[chunk]
max_tokens = 100
overlap_tokens = 200
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error for overlap_tokens >= max_tokens")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Router.TickIntervalMillis != DefaultTickIntervalMillis {
		t.Errorf("TickIntervalMillis: got %d, want %d", cfg.Router.TickIntervalMillis, DefaultTickIntervalMillis)
	}
	if cfg.Router.MaxConcurrentExtractions != DefaultMaxConcurrentExtractions {
		t.Errorf("MaxConcurrentExtractions: got %d, want %d", cfg.Router.MaxConcurrentExtractions, DefaultMaxConcurrentExtractions)
	}
	if cfg.Ingest.SocketPath != DefaultSocketPath {
		t.Errorf("SocketPath: got %q, want %q", cfg.Ingest.SocketPath, DefaultSocketPath)
	}
	if cfg.Chunk.MaxTokens != DefaultChunkMaxTokens {
		t.Errorf("Chunk.MaxTokens: got %d, want %d", cfg.Chunk.MaxTokens, DefaultChunkMaxTokens)
	}
}

func TestConfigFilePath_BeforeLoad(t *testing.T) {
	loadedConfigFile.Store("")
	path := ConfigFilePath()
	if path != "" {
		t.Errorf("ConfigFilePath before load: got %q, want empty", path)
	}
}

func TestExportConfig(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "exported.toml")

	cfg := DefaultConfig()
	set(cfg)

	if err := ExportConfig(exportPath); err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("exported config is empty")
	}
}

func TestImportConfig(t *testing.T) {
	dir := t.TempDir()
	importPath := filepath.Join(dir, "import.toml")

	content := `
[server]
log_level = "warn"
data_dir = "` + dir + `"

[router]
tick_interval_millis = 1500
max_concurrent_extractions = 4
extraction_timeout_seconds = 10
`
	if err := os.WriteFile(importPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := ImportConfig(importPath); err != nil {
		t.Fatalf("ImportConfig: %v", err)
	}

	cfg := Get()
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("LogLevel after import: got %q, want %q", cfg.Server.LogLevel, "warn")
	}
	if cfg.Router.TickIntervalMillis != 1500 {
		t.Errorf("TickIntervalMillis after import: got %d, want 1500", cfg.Router.TickIntervalMillis)
	}

	set(DefaultConfig())
}
