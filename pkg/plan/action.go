// Package plan defines the closed action vocabulary of an automation plan and
// decodes translator output into a typed Plan.
//
// A Plan is an ordered list of Actions. Each decoded JSON object becomes one
// of Navigate, Click, Type, ExtractText or End, selected by its "action"
// field. Objects naming any other action become Unknown, which the executor
// skips. The decoder checks only that the input is a JSON array of objects;
// required fields are checked by Validate when an action is about to run.
package plan

import (
	"fmt"
	"strings"
)

// Kind is the value of an action's "action" field.
type Kind string

const (
	KindNavigate    Kind = "navigate"
	KindClick       Kind = "click"
	KindType        Kind = "type"
	KindExtractText Kind = "extract_text"
	KindEnd         Kind = "end"
)

// Field names used in plan records.
const (
	FieldAction      = "action"
	FieldURL         = "url"
	FieldSelector    = "selector"
	FieldText        = "text"
	FieldDescription = "description"
	FieldMessage     = "message"
)

// Spec describes one kind of the vocabulary: its required fields and what it does.
type Spec struct {
	Kind     Kind
	Required []string
	Summary  string
}

var vocabulary = []Spec{
	{Kind: KindNavigate, Required: []string{FieldURL}, Summary: "load a new document at url"},
	{Kind: KindClick, Required: []string{FieldSelector}, Summary: "click the first element matching selector (a CSS selector)"},
	{Kind: KindType, Required: []string{FieldSelector, FieldText}, Summary: "type text into the element matching selector"},
	{Kind: KindExtractText, Required: []string{FieldSelector, FieldDescription}, Summary: "read the text of the element matching selector; description says what the text is"},
	{Kind: KindEnd, Required: []string{FieldMessage}, Summary: "signal the end of the task with a message to show the user"},
}

// Kinds returns the closed vocabulary in a stable order.
func Kinds() []Spec {
	out := make([]Spec, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// IsKnown reports whether k belongs to the vocabulary.
func IsKnown(k Kind) bool {
	for _, s := range vocabulary {
		if s.Kind == k {
			return true
		}
	}
	return false
}

// Record is an action object exactly as decoded from JSON.
type Record map[string]any

// String returns the field value if it is present and a JSON string.
func (r Record) String(field string) (string, bool) {
	v, ok := r[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Action is one step of a plan.
type Action interface {
	// Kind returns the action kind. Unknown actions return the raw name.
	Kind() Kind

	// Validate reports a *MissingFieldError when a required field is absent.
	Validate() error

	// Record returns the raw decoded object.
	Record() Record
}

// MissingFieldError reports required fields absent from an action.
type MissingFieldError struct {
	Kind   Kind
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field(s) %s", e.Kind, strings.Join(e.Fields, ", "))
}

// base carries the raw record and the names of required fields that were absent.
type base struct {
	raw     Record
	missing []string
}

func (b base) Record() Record { return b.raw }

func (b base) validate(k Kind) error {
	if len(b.missing) == 0 {
		return nil
	}
	return &MissingFieldError{Kind: k, Fields: append([]string(nil), b.missing...)}
}

// Navigate loads URL in the page.
type Navigate struct {
	base
	URL string
}

func (a *Navigate) Kind() Kind      { return KindNavigate }
func (a *Navigate) Validate() error { return a.validate(KindNavigate) }

// Click dispatches a click on the first element matching Selector.
type Click struct {
	base
	Selector string
}

func (a *Click) Kind() Kind      { return KindClick }
func (a *Click) Validate() error { return a.validate(KindClick) }

// Type simulates keystrokes of Text into the element matching Selector.
type Type struct {
	base
	Selector string
	Text     string
}

func (a *Type) Kind() Kind      { return KindType }
func (a *Type) Validate() error { return a.validate(KindType) }

// ExtractText reads the rendered text of the element matching Selector.
// Description only labels the value in the execution log.
type ExtractText struct {
	base
	Selector    string
	Description string
}

func (a *ExtractText) Kind() Kind      { return KindExtractText }
func (a *ExtractText) Validate() error { return a.validate(KindExtractText) }

// End terminates the plan normally. Message is surfaced verbatim.
//
// A missing message is tolerated: End never fails validation, so a plan can
// always terminate cleanly.
type End struct {
	base
	Message string
}

func (a *End) Kind() Kind      { return KindEnd }
func (a *End) Validate() error { return nil }

// Unknown is any action outside the vocabulary. Name is the raw "action"
// value, empty when it was absent or not a string.
type Unknown struct {
	base
	Name string
}

func (a *Unknown) Kind() Kind      { return Kind(a.Name) }
func (a *Unknown) Validate() error { return nil }

// FromRecord builds the typed action for rec.
func FromRecord(rec Record) Action {
	name, _ := rec.String(FieldAction)
	b := base{raw: rec}
	field := func(key string) string {
		v, ok := rec.String(key)
		if !ok {
			b.missing = append(b.missing, key)
		}
		return v
	}

	switch Kind(name) {
	case KindNavigate:
		url := field(FieldURL)
		return &Navigate{base: b, URL: url}
	case KindClick:
		sel := field(FieldSelector)
		return &Click{base: b, Selector: sel}
	case KindType:
		sel := field(FieldSelector)
		text := field(FieldText)
		return &Type{base: b, Selector: sel, Text: text}
	case KindExtractText:
		sel := field(FieldSelector)
		desc := field(FieldDescription)
		return &ExtractText{base: b, Selector: sel, Description: desc}
	case KindEnd:
		msg := field(FieldMessage)
		return &End{base: b, Message: msg}
	default:
		return &Unknown{base: b, Name: name}
	}
}
