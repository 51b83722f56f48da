// Package config handles loading, validating, and hot-reloading the
// claimform configuration. Credentials are referenced as ${ENV_VAR}
// placeholders in the config file and resolved at use time, so the file
// itself never holds secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/claimform/claimform/internal/providers"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	for key, value := range defaultValues() {
		viper.SetDefault(key, value)
	}

	// Environment variables with CLAIMFORM_ prefix
	viper.SetEnvPrefix("CLAIMFORM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.claimform")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// Validate checks that every required credential resolves to a non-empty
// value, reporting all gaps at once so operators fix them in one pass.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"azure.docintel.endpoint", c.Azure.DocIntel.Endpoint},
		{"azure.docintel.api_key", c.Azure.DocIntel.APIKey},
		{"azure.openai.endpoint", c.Azure.OpenAI.Endpoint},
		{"azure.openai.api_key", c.Azure.OpenAI.APIKey},
	}
	for _, r := range required {
		if ResolveEnvVars(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// BuildProviders constructs the OCR and LLM clients from the resolved
// configuration.
func (c *Config) BuildProviders() (providers.OCRProvider, providers.LLMClient) {
	ocr := providers.NewAzureDIClient(providers.AzureDIConfig{
		Endpoint:      ResolveEnvVars(c.Azure.DocIntel.Endpoint),
		APIKey:        ResolveEnvVars(c.Azure.DocIntel.APIKey),
		APIVersion:    c.Azure.DocIntel.APIVersion,
		SubmitTimeout: c.OCR.SubmitTimeout(),
	})
	llm := providers.NewAzureOpenAIClient(providers.AzureOpenAIConfig{
		Endpoint:    ResolveEnvVars(c.Azure.OpenAI.Endpoint),
		APIKey:      ResolveEnvVars(c.Azure.OpenAI.APIKey),
		Deployment:  c.Azure.OpenAI.Deployment,
		APIVersion:  c.Azure.OpenAI.APIVersion,
		Temperature: c.LLM.Temperature,
	})
	return ocr, llm
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# claimform configuration
# Credentials use ${ENV_VAR} syntax to reference environment variables.
# Set these in your shell or a .env file:
#   export AZURE_DOC_INTEL_ENDPOINT=... AZURE_DOC_INTEL_KEY=...
#   export AZURE_OPENAI_ENDPOINT=... AOAI_API_KEY=...

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
