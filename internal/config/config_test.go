package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"callscribe/internal/config"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsPathsAndAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CALLSCRIBE_STT_API_KEY", "env-key")

	path := writeConfig(t, t.TempDir(), `
[paths]
staging_dir = "~/audio/staging"

[stt]
base_url = "https://stt.example.com/"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}

	wantStaging := filepath.Join(tempHome, "audio", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if strings.HasSuffix(cfg.STT.BaseURL, "/") {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.STT.BaseURL)
	}
	if cfg.STT.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.STT.APIKey)
	}
	if cfg.STT.PrimaryLanguage != "si-LK" {
		t.Fatalf("unexpected primary language %q", cfg.STT.PrimaryLanguage)
	}
	if cfg.Chunking.TargetSeconds != config.Default().Chunking.TargetSeconds {
		t.Fatalf("unexpected chunk target: %d", cfg.Chunking.TargetSeconds)
	}
	if cfg.Fallback.Strategy != "alternate_language" {
		t.Fatalf("unexpected fallback strategy %q", cfg.Fallback.Strategy)
	}
}

func TestLoadNormalizesLanguageCodes(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[stt]
base_url = "https://stt.example.com"
primary_language = "si_lk"
alternate_languages = ["EN_us", "si-LK"]
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.STT.PrimaryLanguage != "si-LK" {
		t.Fatalf("expected normalized primary language, got %q", cfg.STT.PrimaryLanguage)
	}
	// the primary language is dropped from the alternates
	if len(cfg.STT.AlternateLanguages) != 1 || cfg.STT.AlternateLanguages[0] != "en-US" {
		t.Fatalf("unexpected alternates %v", cfg.STT.AlternateLanguages)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	if _, _, _, err := config.Load(""); err == nil {
		t.Fatal("expected error when stt.base_url is missing")
	}
}

func TestLoadRejectsInvalidChunking(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[stt]
base_url = "https://stt.example.com"

[chunking]
min_seconds = 10
max_seconds = 8
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for min_seconds > max_seconds")
	}
}

func TestLoadRejectsOversizedOverlap(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[stt]
base_url = "https://stt.example.com"

[chunking]
overlap_seconds = 20.0
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for overlap >= min_seconds")
	}
}

func TestLoadRejectsUnknownFallbackStrategy(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[stt]
base_url = "https://stt.example.com"

[fallback]
strategy = "guess"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown fallback strategy")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}

func TestEnsureDirectoriesCreatesTree(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.StagingDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}
