package config

import "time"

const (
	DefaultOllamaURL   = "http://localhost:11434/api/generate"
	DefaultOllamaModel = "qwen2.5:14b"
	DefaultDotEnvPath  = ".env"
)

func Defaults() *Config {
	return &Config{
		Ollama: OllamaConfig{
			APIURL:  DefaultOllamaURL,
			Model:   DefaultOllamaModel,
			Timeout: 120 * time.Second,
		},
		General: GeneralConfig{
			LogLevel: "info",
		},
	}
}
