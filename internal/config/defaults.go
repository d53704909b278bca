package config

const (
	defaultDataDir            = "~/.local/share/podmill"
	defaultAudioDir           = "~/.local/share/podmill/audio"
	defaultLogDir             = "~/.local/share/podmill/logs"
	defaultExportDir          = "~/.local/share/podmill/exports"
	defaultPostsDir           = "~/.local/share/podmill/posts"
	defaultMaxEpisodesPerFeed = 10
	defaultAudioFormat        = "wav"
	defaultSampleRate         = 16000
	defaultDownloadTimeout    = 300
	defaultWhisperBinary      = "whisper"
	defaultWhisperModel       = "base"
	defaultWhisperTimeout     = 3600
	defaultLLMBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel           = "gpt-4o-mini"
	defaultLLMTimeoutSeconds  = 120
	defaultTargetGrade        = 91.0
	defaultMaxIterations      = 3
	defaultConcurrency        = 1
	defaultLeaseTimeout       = 1800
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			AudioDir:  defaultAudioDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
			PostsDir:  defaultPostsDir,
		},
		Fetch: Fetch{
			MaxEpisodesPerFeed: defaultMaxEpisodesPerFeed,
			AudioFormat:        defaultAudioFormat,
			SampleRate:         defaultSampleRate,
			DownloadTimeout:    defaultDownloadTimeout,
		},
		Whisper: Whisper{
			Binary:  defaultWhisperBinary,
			Model:   defaultWhisperModel,
			Timeout: defaultWhisperTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Writer: Writer{
			TargetGrade:   defaultTargetGrade,
			MaxIterations: defaultMaxIterations,
		},
		Pipeline: Pipeline{
			Concurrency:  defaultConcurrency,
			LeaseTimeout: defaultLeaseTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
