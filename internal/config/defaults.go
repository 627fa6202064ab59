package config

const (
	defaultConfigPath          = "~/.config/storyloom/config.toml"
	defaultDataDir             = "~/.local/share/storyloom"
	defaultOutputDir           = "~/.local/share/storyloom/stories"
	defaultLogDir              = "~/.local/share/storyloom/logs"
	defaultBaseURL             = "https://api.openai.com/v1"
	defaultTextModel           = "gpt-4o-mini"
	defaultImageModel          = "dall-e-3"
	defaultImageSize           = "1024x1024"
	defaultSpeechModel         = "tts-1"
	defaultVoice               = "alloy"
	defaultTimeoutSeconds      = 120
	defaultMaxRefineIterations = 5
	defaultAssetConcurrency    = 4
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultMetricsTextfile     = "~/.local/share/storyloom/metrics/storyloom.prom"
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Generation: Generation{
			BaseURL:        defaultBaseURL,
			TextModel:      defaultTextModel,
			ImageModel:     defaultImageModel,
			ImageSize:      defaultImageSize,
			SpeechModel:    defaultSpeechModel,
			Voice:          defaultVoice,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Workflow: Workflow{
			MaxRefineIterations: defaultMaxRefineIterations,
			AssetConcurrency:    defaultAssetConcurrency,
		},
		Logging: Logging{
			Format:         defaultLogFormat,
			Level:          defaultLogLevel,
			StageOverrides: map[string]string{},
		},
		Metrics: Metrics{
			TextfilePath: defaultMetricsTextfile,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
	}
}
