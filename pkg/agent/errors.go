package agent

import (
	"errors"
	"fmt"

	"github.com/entrhq/brain/pkg/plan"
)

var (
	// ErrTranslator is matched by every *TranslatorError.
	ErrTranslator = errors.New("translator failed")

	// ErrStep is matched by every *StepError.
	ErrStep = errors.New("plan step failed")
)

// TranslatorError reports that the LLM provider could not produce plan text.
type TranslatorError struct {
	// Provider is the backend name, such as "gemini" or "ollama".
	Provider string
	Model    string
	Err      error
}

func (e *TranslatorError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s translator failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s translator failed (model %s): %v", e.Provider, e.Model, e.Err)
}

func (e *TranslatorError) Unwrap() error { return e.Err }

func (e *TranslatorError) Is(target error) bool { return target == ErrTranslator }

// StepError reports the action that stopped a plan.
type StepError struct {
	// Index is the zero-based position of the action in the plan.
	Index int
	Kind  plan.Kind
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) Is(target error) bool { return target == ErrStep }
