// Package config loads the brain configuration file.
//
// The file is YAML with one section per concern:
//
//	llm:
//	  provider: gemini
//	  model: gemini-1.5-flash-latest
//	browser:
//	  driver: playwright
//	  headless: false
//	  timeout: 30s
//	agent:
//	  max_steps: 25
//	logging:
//	  verbosity: normal
//
// Values are applied in order: defaults, the file, environment variables,
// then command-line flags (applied by the caller).
package config

import (
	"fmt"
	"time"

	"github.com/entrhq/brain/pkg/agent"
	"github.com/entrhq/brain/pkg/browser"
	"github.com/entrhq/brain/pkg/logging"
)

// Translator providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Browser drivers.
const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// Config is the full brain configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Browser BrowserConfig `yaml:"browser"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects the translator.
type LLMConfig struct {
	Provider string `yaml:"provider"`

	// Model is the provider's model name. Empty means the provider default.
	Model string `yaml:"model"`

	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// Temperature is passed to the provider when set.
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// BrowserConfig controls browser launches.
type BrowserConfig struct {
	Driver   string         `yaml:"driver"`
	Headless bool           `yaml:"headless"`
	KeepOpen bool           `yaml:"keep_open"`
	Timeout  time.Duration  `yaml:"timeout"`
	Viewport ViewportConfig `yaml:"viewport"`

	// ExecPath points chromedp at a specific Chrome binary.
	ExecPath string `yaml:"exec_path,omitempty"`

	// AllowedHosts and DeniedHosts are host globs checked before navigation.
	// Both empty disables the check.
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`
	DeniedHosts  []string `yaml:"denied_hosts,omitempty"`
}

// ViewportConfig is the initial page size.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// AgentConfig bounds plan execution.
type AgentConfig struct {
	MaxSteps int `yaml:"max_steps"`
}

// LoggingConfig controls console verbosity and the diagnostic log file.
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity  string `yaml:"verbosity"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderGemini,
		},
		Browser: BrowserConfig{
			Driver:   DriverPlaywright,
			KeepOpen: true,
			Timeout:  browser.DefaultTimeout,
			Viewport: ViewportConfig{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
		},
		Agent: AgentConfig{
			MaxSteps: agent.DefaultMaxSteps,
		},
		Logging: LoggingConfig{
			Verbosity:  "normal",
			Dir:        logging.DefaultDir,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

var (
	validProviders  = map[string]bool{ProviderGemini: true, ProviderOpenAI: true, ProviderOllama: true}
	validDrivers    = map[string]bool{DriverPlaywright: true, DriverChromedp: true}
	validVerbosity  = map[string]bool{"quiet": true, "normal": true, "verbose": true, "debug": true}
	keylessProvider = map[string]bool{ProviderOllama: true}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm provider: %s (must be 'gemini', 'openai', or 'ollama')", c.LLM.Provider)
	}

	if c.LLM.APIKey == "" && !keylessProvider[c.LLM.Provider] {
		return fmt.Errorf("an API key is required for the %s provider (set llm.api_key or %s)", c.LLM.Provider, apiKeyEnv[c.LLM.Provider])
	}

	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *c.LLM.Temperature)
	}

	if !validDrivers[c.Browser.Driver] {
		return fmt.Errorf("invalid browser driver: %s (must be 'playwright' or 'chromedp')", c.Browser.Driver)
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}

	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions cannot be negative")
	}

	if c.Agent.MaxSteps < agent.MinMaxSteps || c.Agent.MaxSteps > agent.MaxMaxSteps {
		return fmt.Errorf("max_steps must be between %d and %d, got %d", agent.MinMaxSteps, agent.MaxMaxSteps, c.Agent.MaxSteps)
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	if !validVerbosity[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// BrowserOptions converts the browser section to launch options.
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless: c.Browser.Headless,
		KeepOpen: c.Browser.KeepOpen,
		Timeout:  c.Browser.Timeout,
		Viewport: browser.Viewport{
			Width:  c.Browser.Viewport.Width,
			Height: c.Browser.Viewport.Height,
		},
	}
}

// LoggingOptions converts the logging section to log file options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Dir:        c.Logging.Dir,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}
