package config

const (
	defaultAssetsDir         = "public"
	defaultTempDir           = "temp"
	defaultStateDir          = "~/.local/share/captionsync"
	defaultModel             = "large-v3"
	defaultLanguage          = "en"
	defaultVADMethod         = "silero"
	defaultMergeThresholdMS  = 200
	defaultFPS               = 30
	defaultMaxCaptionSeconds = 1.0
	defaultWatchDebounceMS   = 250
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetsDir: defaultAssetsDir,
			TempDir:   defaultTempDir,
			StateDir:  defaultStateDir,
		},
		Transcription: Transcription{
			Model:            defaultModel,
			Language:         defaultLanguage,
			VADMethod:        defaultVADMethod,
			MergeThresholdMS: defaultMergeThresholdMS,
		},
		Render: Render{
			FPS:               defaultFPS,
			MaxCaptionSeconds: defaultMaxCaptionSeconds,
		},
		Watch: Watch{
			DebounceMS: defaultWatchDebounceMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
