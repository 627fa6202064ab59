package genai

import "storyloom/internal/config"

// ConfigFrom maps the generation section of the application config.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		TextModel:   cfg.Generation.TextModel,
		ImageModel:  cfg.Generation.ImageModel,
		ImageSize:   cfg.Generation.ImageSize,
		SpeechModel: cfg.Generation.SpeechModel,
		Voice:       cfg.Generation.Voice,
		Timeout:     cfg.GenerationTimeout(),
	}
}
