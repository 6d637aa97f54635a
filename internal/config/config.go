package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	OutputDir  string `toml:"output_dir"`
}

// STT contains configuration for the external speech gateway.
type STT struct {
	BaseURL             string   `toml:"base_url"`
	APIKey              string   `toml:"api_key"`
	PrimaryLanguage     string   `toml:"primary_language"`
	AlternateLanguages  []string `toml:"alternate_languages"`
	SpeakerCount        int      `toml:"speaker_count"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
	RetryMaxAttempts    int      `toml:"retry_max_attempts"`
	MaxConcurrentChunks int      `toml:"max_concurrent_chunks"`
}

// Preprocess contains configuration for audio normalization before chunking.
type Preprocess struct {
	TargetSampleRate    int     `toml:"target_sample_rate"`
	ResampleEnabled     bool    `toml:"resample_enabled"`
	HighPassEnabled     bool    `toml:"high_pass_enabled"`
	HighPassHz          int     `toml:"high_pass_hz"`
	NormalizeEnabled    bool    `toml:"normalize_enabled"`
	NormalizeHeadroomDB float64 `toml:"normalize_headroom_db"`
}

// Chunking contains configuration for silence-aware audio splitting.
type Chunking struct {
	TargetSeconds      int     `toml:"target_seconds"`
	MaxSeconds         int     `toml:"max_seconds"`
	MinSeconds         int     `toml:"min_seconds"`
	MinSilenceMs       int     `toml:"min_silence_ms"`
	OverlapSeconds     float64 `toml:"overlap_seconds"`
	SilenceThresholdDB float64 `toml:"silence_threshold_db"` // 0 = derive from track loudness
}

// Fallback contains configuration for the hybrid quality fallback.
type Fallback struct {
	Enabled            bool    `toml:"enabled"`
	Strategy           string  `toml:"strategy"` // alternate_language | resplit | manual_review
	MinConfidence      float64 `toml:"min_confidence"`
	MaxEmptyChunkRatio float64 `toml:"max_empty_chunk_ratio"`
	MinTranscriptChars int     `toml:"min_transcript_chars"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	CallTimeoutSeconds int `toml:"call_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for callscribe.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, log, and transcript output directories
//   - STT: external speech gateway connection, languages, diarization
//   - Preprocess: resample / high-pass / headroom normalization toggles
//   - Chunking: silence-aware chunk boundaries and overlap
//   - Fallback: hybrid fallback strategy and quality thresholds
//   - Workflow: daemon polling intervals and per-call timeout
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	STT        STT        `toml:"stt"`
	Preprocess Preprocess `toml:"preprocess"`
	Chunking   Chunking   `toml:"chunking"`
	Fallback   Fallback   `toml:"fallback"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/callscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("callscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to the given path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// ExpandPath resolves ~ and relative segments into an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
