package config

const (
	defaultDataDir           = "~/.local/share/studyscribe"
	defaultLogDir            = "~/.local/share/studyscribe/logs"
	defaultAPIBind           = "127.0.0.1:7490"
	defaultMaxWorkers        = 2
	defaultStaleAfterMinutes = 120
	defaultWindowSeconds     = 600
	defaultFFmpegBinary      = "ffmpeg"
	defaultUVXBinary         = "uvx"
	defaultWhisperXModel     = "base"
	defaultComputeType       = "int8"
	defaultTargetChars       = 1200
	defaultOverlapChars      = 200
	defaultTopK              = 8
	defaultLLMBaseURL        = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultLLMModel          = "gemini-2.5-flash"
	defaultLLMTimeoutSeconds = 60
	defaultMaxContextTokens  = 6000
	defaultMinFreePercent    = 5
	defaultMinFreeMB         = 500
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Jobs: Jobs{
			MaxWorkers:        defaultMaxWorkers,
			StaleAfterMinutes: defaultStaleAfterMinutes,
		},
		Transcription: Transcription{
			WindowSeconds: defaultWindowSeconds,
			FFmpegBinary:  defaultFFmpegBinary,
			UVXBinary:     defaultUVXBinary,
			WhisperXModel: defaultWhisperXModel,
			ComputeType:   defaultComputeType,
		},
		Retrieval: Retrieval{
			TargetChars:  defaultTargetChars,
			OverlapChars: defaultOverlapChars,
			TopK:         defaultTopK,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			MaxContextTokens: defaultMaxContextTokens,
		},
		Storage: Storage{
			MinFreePercent: defaultMinFreePercent,
			MinFreeMB:      defaultMinFreeMB,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
