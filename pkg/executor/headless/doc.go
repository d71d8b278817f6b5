// Package headless runs a single instruction without the TUI and prints its
// progress to a terminal or log.
//
// The executor consumes an agent.Runner's update stream:
//
//	plan_generated ──▶ "Plan" section with the translator output
//	final          ──▶ the execution log, then a run summary
//
// Output is colored and filtered by verbosity (quiet, normal, verbose,
// debug). When an artifact directory is configured, run.json and summary.md
// are written after the run.
//
// Example usage:
//
//	orch := agent.NewOrchestrator(provider, executor)
//	exec := headless.NewExecutor(orch, headless.NewLogger(headless.LogLevelNormal))
//	summary, err := exec.Run(ctx, "search google for Gemini AI")
package headless
