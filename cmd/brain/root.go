package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/brain/pkg/config"
	"github.com/entrhq/brain/pkg/executor/headless"
	"github.com/entrhq/brain/pkg/executor/tui"
)

// flags holds the persistent command-line overrides.
type flags struct {
	configPath   string
	provider     string
	model        string
	driver       string
	headless     bool
	maxSteps     int
	verbosity    string
	artifactsDir string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&flags{})
}

func buildRootCmd(f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:   "brain",
		Short: "B.R.A.I.N turns natural-language instructions into browser actions.",
		Long: `B.R.A.I.N (Browser Retrieval and Automation Intelligent Network) asks an LLM to
translate an instruction into a JSON plan of browser actions, then runs the plan
in a real browser window. Without a subcommand the interactive TUI starts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runTUI(f),
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "config file (default "+config.DefaultPath+")")
	pf.StringVar(&f.provider, "provider", "", "translator provider: gemini, openai or ollama")
	pf.StringVar(&f.model, "model", "", "translator model name")
	pf.StringVar(&f.driver, "driver", "", "browser driver: playwright or chromedp")
	pf.BoolVar(&f.headless, "headless", false, "run the browser without a window")
	pf.IntVar(&f.maxSteps, "max-steps", 0, "maximum number of plan actions to run (1-50)")
	pf.StringVar(&f.verbosity, "verbosity", "", "console verbosity: quiet, normal, verbose or debug")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Start the interactive TUI (the default)",
			Args:  cobra.NoArgs,
			RunE:  runTUI(f),
		},
		newRunCmd(f),
		newConfigCmd(f),
		newVersionCmd(),
	)
	return root
}

func runTUI(f *flags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd, f)
		if err != nil {
			return err
		}
		defer a.Close()

		return tui.NewExecutor(a.orchestrator, a.provider.GetModel(), tui.WithLogger(a.logger)).Run(cmd.Context())
	}
}

func newRunCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <instruction...>",
		Short: "Run one instruction without the TUI",
		Example: `  brain run "Go to github.com and search for the 'gradio' repository"
  brain run --headless --verbosity verbose Go to example.com and extract the heading`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			level := headless.ParseLogLevel(a.cfg.Logging.Verbosity)
			exec := headless.NewExecutor(a.orchestrator, headless.NewLogger(level), headless.WithArtifacts(f.artifactsDir))
			_, err = exec.Run(cmd.Context(), strings.Join(args, " "))
			return err
		},
	}
	cmd.Flags().StringVar(&f.artifactsDir, "artifacts", "", "directory to write run.json and summary.md to")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "brain v%s\n", version)
		},
	}
}
