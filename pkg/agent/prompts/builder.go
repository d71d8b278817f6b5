// Package prompts builds the instruction sent to the translator.
package prompts

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/entrhq/brain/pkg/plan"
	"github.com/entrhq/brain/pkg/types"
)

// PromptBuilder constructs the plan request for a single instruction.
type PromptBuilder struct {
	actions  []plan.Spec
	maxSteps int
}

// NewPromptBuilder creates a builder listing the full action vocabulary.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		actions: plan.Kinds(),
	}
}

// WithActions replaces the advertised vocabulary.
func (pb *PromptBuilder) WithActions(actions []plan.Spec) *PromptBuilder {
	pb.actions = actions
	return pb
}

// WithMaxSteps asks the translator to stay within n actions. Zero omits the hint.
func (pb *PromptBuilder) WithMaxSteps(n int) *PromptBuilder {
	pb.maxSteps = n
	return pb
}

// Build constructs the complete prompt for instruction.
func (pb *PromptBuilder) Build(instruction string) string {
	var builder strings.Builder

	builder.WriteString(RolePrompt)
	builder.WriteString("\n\n")

	builder.WriteString("The available actions are: ")
	builder.WriteString(quotedKinds(pb.actions))
	builder.WriteString(".\n\n")

	for _, spec := range pb.actions {
		builder.WriteString(FormatAction(spec))
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	builder.WriteString(SelectorGuidancePrompt)
	builder.WriteString("\n")
	if pb.maxSteps > 0 {
		fmt.Fprintf(&builder, "Use at most %d actions and finish with \"%s\".\n", pb.maxSteps, plan.KindEnd)
	}
	builder.WriteString("\n")

	fmt.Fprintf(&builder, "User Request: %q\n\n", instruction)
	builder.WriteString(OutputFormatPrompt)

	return builder.String()
}

// BuildMessages wraps the prompt as the single user message sent to the translator.
func (pb *PromptBuilder) BuildMessages(instruction string) []*types.Message {
	return []*types.Message{types.NewUserMessage(pb.Build(instruction))}
}

// FormatAction renders one vocabulary entry as a bullet.
func FormatAction(spec plan.Spec) string {
	return fmt.Sprintf("- %q: %s. Needs %s.", string(spec.Kind), capitalize(spec.Summary), formatFields(spec.Required))
}

func quotedKinds(specs []plan.Spec) string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = fmt.Sprintf("%q", string(s.Kind))
	}
	return strings.Join(names, ", ")
}

// formatFields renders ["selector","text"] as `a "selector" and a "text" parameter`.
func formatFields(fields []string) string {
	if len(fields) == 0 {
		return "no parameters"
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = fmt.Sprintf("a %q", f)
	}
	return strings.Join(quoted, " and ") + " parameter"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
