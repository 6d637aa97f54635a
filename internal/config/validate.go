package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSTT(); err != nil {
		return err
	}
	if err := c.validatePreprocess(); err != nil {
		return err
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateFallback(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSTT() error {
	if strings.TrimSpace(c.STT.BaseURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/callscribe/config.toml"
		}
		return fmt.Errorf("stt.base_url is required. Edit %s (create with 'callscribe config init')", defaultPath)
	}
	if c.STT.SpeakerCount <= 0 {
		return errors.New("stt.speaker_count must be positive")
	}
	if c.STT.TimeoutSeconds <= 0 {
		return errors.New("stt.timeout_seconds must be positive")
	}
	if c.STT.RetryMaxAttempts <= 0 {
		return errors.New("stt.retry_max_attempts must be positive")
	}
	if c.STT.MaxConcurrentChunks <= 0 {
		return errors.New("stt.max_concurrent_chunks must be positive")
	}
	return nil
}

func (c *Config) validatePreprocess() error {
	if c.Preprocess.TargetSampleRate <= 0 {
		return errors.New("preprocess.target_sample_rate must be positive")
	}
	if c.Preprocess.HighPassEnabled && c.Preprocess.HighPassHz <= 0 {
		return errors.New("preprocess.high_pass_hz must be positive when preprocess.high_pass_enabled is true")
	}
	if c.Preprocess.NormalizeEnabled && c.Preprocess.NormalizeHeadroomDB < 0 {
		return errors.New("preprocess.normalize_headroom_db must be >= 0")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if err := ensurePositiveMap(map[string]int{
		"chunking.target_seconds": c.Chunking.TargetSeconds,
		"chunking.max_seconds":    c.Chunking.MaxSeconds,
		"chunking.min_seconds":    c.Chunking.MinSeconds,
		"chunking.min_silence_ms": c.Chunking.MinSilenceMs,
	}); err != nil {
		return err
	}
	if c.Chunking.MinSeconds > c.Chunking.MaxSeconds {
		return errors.New("chunking.min_seconds must not exceed chunking.max_seconds")
	}
	if c.Chunking.TargetSeconds > c.Chunking.MaxSeconds {
		return errors.New("chunking.target_seconds must not exceed chunking.max_seconds")
	}
	if c.Chunking.OverlapSeconds < 0 {
		return errors.New("chunking.overlap_seconds must be >= 0")
	}
	if c.Chunking.OverlapSeconds >= float64(c.Chunking.MinSeconds) {
		return errors.New("chunking.overlap_seconds must be smaller than chunking.min_seconds")
	}
	return nil
}

func (c *Config) validateFallback() error {
	if !c.Fallback.Enabled {
		return nil
	}
	switch c.Fallback.Strategy {
	case "alternate_language", "resplit", "manual_review":
	default:
		return fmt.Errorf("fallback.strategy must be one of alternate_language, resplit, manual_review (got %q)", c.Fallback.Strategy)
	}
	if c.Fallback.MinConfidence < 0 || c.Fallback.MinConfidence > 1 {
		return errors.New("fallback.min_confidence must be between 0 and 1")
	}
	if c.Fallback.MaxEmptyChunkRatio < 0 || c.Fallback.MaxEmptyChunkRatio > 1 {
		return errors.New("fallback.max_empty_chunk_ratio must be between 0 and 1")
	}
	if c.Fallback.MinTranscriptChars < 0 {
		return errors.New("fallback.min_transcript_chars must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.call_timeout_seconds": c.Workflow.CallTimeoutSeconds,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
