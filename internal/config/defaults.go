package config

const (
	defaultDataDir    = "~/.local/share/callscribe"
	defaultStagingDir = "~/.local/share/callscribe/staging"
	defaultLogDir     = "~/.local/share/callscribe/logs"
	defaultOutputDir  = "~/.local/share/callscribe/transcripts"

	defaultPrimaryLanguage     = "si-LK"
	defaultSpeakerCount        = 2
	defaultSTTTimeoutSeconds   = 120
	defaultRetryMaxAttempts    = 4
	defaultMaxConcurrentChunks = 4

	defaultTargetSampleRate    = 16000
	defaultHighPassHz          = 120
	defaultNormalizeHeadroomDB = 1.0

	defaultChunkTargetSeconds  = 22
	defaultChunkMaxSeconds     = 25
	defaultChunkMinSeconds     = 20
	defaultChunkMinSilenceMs   = 700
	defaultChunkOverlapSeconds = 1.0

	defaultFallbackStrategy    = "alternate_language"
	defaultMinConfidence       = 0.55
	defaultMaxEmptyChunkRatio  = 0.30
	defaultMinTranscriptChars  = 30
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultCallTimeoutSeconds  = 1800
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			OutputDir:  defaultOutputDir,
		},
		STT: STT{
			PrimaryLanguage:     defaultPrimaryLanguage,
			AlternateLanguages:  []string{"en-US", "ta-LK"},
			SpeakerCount:        defaultSpeakerCount,
			TimeoutSeconds:      defaultSTTTimeoutSeconds,
			RetryMaxAttempts:    defaultRetryMaxAttempts,
			MaxConcurrentChunks: defaultMaxConcurrentChunks,
		},
		Preprocess: Preprocess{
			TargetSampleRate:    defaultTargetSampleRate,
			ResampleEnabled:     true,
			HighPassEnabled:     true,
			HighPassHz:          defaultHighPassHz,
			NormalizeEnabled:    true,
			NormalizeHeadroomDB: defaultNormalizeHeadroomDB,
		},
		Chunking: Chunking{
			TargetSeconds:  defaultChunkTargetSeconds,
			MaxSeconds:     defaultChunkMaxSeconds,
			MinSeconds:     defaultChunkMinSeconds,
			MinSilenceMs:   defaultChunkMinSilenceMs,
			OverlapSeconds: defaultChunkOverlapSeconds,
		},
		Fallback: Fallback{
			Enabled:            true,
			Strategy:           defaultFallbackStrategy,
			MinConfidence:      defaultMinConfidence,
			MaxEmptyChunkRatio: defaultMaxEmptyChunkRatio,
			MinTranscriptChars: defaultMinTranscriptChars,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			CallTimeoutSeconds: defaultCallTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
