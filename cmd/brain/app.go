package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/brain/pkg/agent"
	"github.com/entrhq/brain/pkg/browser"
	"github.com/entrhq/brain/pkg/config"
	"github.com/entrhq/brain/pkg/llm"
	"github.com/entrhq/brain/pkg/llm/gemini"
	"github.com/entrhq/brain/pkg/llm/ollama"
	"github.com/entrhq/brain/pkg/llm/openai"
	"github.com/entrhq/brain/pkg/logging"
	"github.com/entrhq/brain/pkg/security/navigation"
)

// app is the wired set of components behind every command.
type app struct {
	cfg          *config.Config
	logger       *logging.Logger
	provider     llm.Provider
	orchestrator *agent.Orchestrator
}

// Close flushes the diagnostic log.
func (a *app) Close() {
	a.logger.Infof("shutting down")
	_ = closeLogger(a.logger)
}

// loadConfig reads the config file and applies env and flag overrides.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	applyFlags(cmd, f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("provider") {
		// Settings chosen for the previous provider do not carry over.
		cfg.LLM.Provider = f.provider
		cfg.LLM.APIKey = ""
		cfg.LLM.Model = ""
		cfg.LLM.BaseURL = ""
		cfg.ApplyEnv()
		cfg.LLM.Provider = f.provider
	}
	if changed("model") {
		cfg.LLM.Model = f.model
	}
	if changed("driver") {
		cfg.Browser.Driver = f.driver
	}
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if changed("max-steps") {
		cfg.Agent.MaxSteps = f.maxSteps
	}
	if changed("verbosity") {
		cfg.Logging.Verbosity = f.verbosity
	}
}

func newApp(ctx context.Context, cmd *cobra.Command, f *flags) (*app, error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}

	logging.Configure(cfg.LoggingOptions())
	logger, err := logging.NewLogger("brain")
	if err != nil {
		// NewLogger falls back to stderr; keep going.
		logger.Warnf("file logging unavailable: %v", err)
	}
	logger.Infof("brain v%s starting (provider=%s driver=%s max_steps=%d)",
		version, cfg.LLM.Provider, cfg.Browser.Driver, cfg.Agent.MaxSteps)

	a, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("startup failed: %v", err)
		_ = closeLogger(logger)
		return nil, err
	}
	return a, nil
}

// closeLogger is replaced in tests.
var closeLogger = (*logging.Logger).Close

// wire builds the provider, browser manager and orchestrator from cfg.
func wire(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	provider, err := newProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.LLM.Provider, err)
	}

	guard, err := navigation.NewGuard(cfg.Browser.AllowedHosts, cfg.Browser.DeniedHosts)
	if err != nil {
		return nil, fmt.Errorf("invalid host list: %w", err)
	}
	if guard.Enabled() {
		logger.Infof("navigation guard enabled")
	}

	sessions := browser.NewManager(newDriver(cfg.Browser), cfg.BrowserOptions(), logger)
	executor := agent.NewExecutor(sessions,
		agent.WithMaxSteps(cfg.Agent.MaxSteps),
		agent.WithNavigationGuard(guard),
		agent.WithExecutorLogger(logger),
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		provider:     provider,
		orchestrator: agent.NewOrchestrator(provider, executor, agent.WithLogger(logger)),
	}, nil
}

// newProvider creates the translator selected by cfg.
func newProvider(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		opts := []gemini.ProviderOption{gemini.WithModel(cfg.Model), gemini.WithBaseURL(cfg.BaseURL)}
		if cfg.Temperature != nil {
			opts = append(opts, gemini.WithTemperature(*cfg.Temperature))
		}
		return gemini.NewProvider(ctx, cfg.APIKey, opts...)

	case config.ProviderOpenAI:
		opts := []openai.ProviderOption{openai.WithModel(cfg.Model), openai.WithBaseURL(cfg.BaseURL)}
		if cfg.Temperature != nil {
			opts = append(opts, openai.WithTemperature(*cfg.Temperature))
		}
		return openai.NewProvider(cfg.APIKey, opts...)

	case config.ProviderOllama:
		opts := []ollama.ProviderOption{ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL)}
		if cfg.Temperature != nil {
			opts = append(opts, ollama.WithTemperature(*cfg.Temperature))
		}
		return ollama.NewProvider(opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// newDriver creates the browser driver selected by cfg.
func newDriver(cfg config.BrowserConfig) browser.Driver {
	if cfg.Driver == config.DriverChromedp {
		return browser.NewChromedpDriver(cfg.ExecPath)
	}
	return browser.NewPlaywrightDriver()
}
