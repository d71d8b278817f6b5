package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file location used when none is given.
const DefaultPath = "~/.brain/config.yaml"

// Environment variables read by ApplyEnv.
const (
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvModel         = "BRAIN_MODEL"
	EnvProvider      = "BRAIN_PROVIDER"
)

var apiKeyEnv = map[string]string{
	ProviderGemini: EnvGeminiAPIKey,
	ProviderOpenAI: EnvOpenAIAPIKey,
}

// ResolvePath expands a leading ~ in path, or in DefaultPath if path is empty.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand config path: %w", err)
	}
	return expanded, nil
}

// Load reads the config file at path over the defaults. A missing file is not
// an error. The result is not validated; call ApplyEnv and Validate after any
// overrides.
func Load(path string) (*Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", resolved, err)
	}

	return cfg, nil
}

// ApplyEnv overrides the file with environment variables. BRAIN_PROVIDER is
// applied first so the API key is read for the selected provider. Keys from
// the environment only fill an empty llm.api_key.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvProvider); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.LLM.Model = v
	}
	if c.LLM.APIKey == "" {
		if name, ok := apiKeyEnv[c.LLM.Provider]; ok {
			c.LLM.APIKey = os.Getenv(name)
		}
	}
	if c.LLM.Provider == ProviderOpenAI && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv(EnvOpenAIBaseURL)
	}
}

// Save writes c to path atomically, creating the directory if needed.
func (c *Config) Save(path string) error {
	resolved, err := ResolvePath(path)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(resolved), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Write to a temp file then rename
	tempPath := resolved + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tempPath, resolved); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
