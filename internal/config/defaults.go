package config

import "time"

// Config is the full claimform configuration.
type Config struct {
	Azure  AzureConfig  `mapstructure:"azure" yaml:"azure"`
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	OCR    OCRConfig    `mapstructure:"ocr" yaml:"ocr"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// AzureConfig groups the two Azure services the pipeline depends on.
type AzureConfig struct {
	DocIntel DocIntelConfig    `mapstructure:"docintel" yaml:"docintel"`
	OpenAI   AzureOpenAIConfig `mapstructure:"openai" yaml:"openai"`
}

// DocIntelConfig configures Azure Document Intelligence.
type DocIntelConfig struct {
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	APIVersion string `mapstructure:"api_version" yaml:"api_version"`
}

// AzureOpenAIConfig configures the Azure OpenAI deployment used for
// extraction.
type AzureOpenAIConfig struct {
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Deployment string `mapstructure:"deployment" yaml:"deployment"`
	APIVersion string `mapstructure:"api_version" yaml:"api_version"`
}

// LLMConfig holds model tunables.
type LLMConfig struct {
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

// OCRConfig bounds the analysis passes.
type OCRConfig struct {
	MaxPages             int `mapstructure:"max_pages" yaml:"max_pages"`
	SubmitTimeoutSeconds int `mapstructure:"submit_timeout_seconds" yaml:"submit_timeout_seconds"`
	ResultTimeoutSeconds int `mapstructure:"result_timeout_seconds" yaml:"result_timeout_seconds"`
}

// SubmitTimeout returns the submission deadline as a duration.
func (o OCRConfig) SubmitTimeout() time.Duration {
	return time.Duration(o.SubmitTimeoutSeconds) * time.Second
}

// ResultTimeout returns the result deadline as a duration.
func (o OCRConfig) ResultTimeout() time.Duration {
	return time.Duration(o.ResultTimeoutSeconds) * time.Second
}

// ServerConfig configures the HTTP upload server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Azure: AzureConfig{
			DocIntel: DocIntelConfig{
				Endpoint:   "${AZURE_DOC_INTEL_ENDPOINT}",
				APIKey:     "${AZURE_DOC_INTEL_KEY}",
				APIVersion: "2024-11-30",
			},
			OpenAI: AzureOpenAIConfig{
				Endpoint:   "${AZURE_OPENAI_ENDPOINT}",
				APIKey:     "${AOAI_API_KEY}",
				Deployment: "gpt-4o",
				APIVersion: "2024-02-15-preview",
			},
		},
		LLM: LLMConfig{
			Temperature: 0.1,
		},
		OCR: OCRConfig{
			MaxPages:             2,
			SubmitTimeoutSeconds: 15,
			ResultTimeoutSeconds: 45,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
	}
}

// defaultValues flattens the defaults into viper keys.
func defaultValues() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"azure.docintel.endpoint":    d.Azure.DocIntel.Endpoint,
		"azure.docintel.api_key":     d.Azure.DocIntel.APIKey,
		"azure.docintel.api_version": d.Azure.DocIntel.APIVersion,
		"azure.openai.endpoint":      d.Azure.OpenAI.Endpoint,
		"azure.openai.api_key":       d.Azure.OpenAI.APIKey,
		"azure.openai.deployment":    d.Azure.OpenAI.Deployment,
		"azure.openai.api_version":   d.Azure.OpenAI.APIVersion,
		"llm.temperature":            d.LLM.Temperature,
		"ocr.max_pages":              d.OCR.MaxPages,
		"ocr.submit_timeout_seconds": d.OCR.SubmitTimeoutSeconds,
		"ocr.result_timeout_seconds": d.OCR.ResultTimeoutSeconds,
		"server.host":                d.Server.Host,
		"server.port":                d.Server.Port,
	}
}
