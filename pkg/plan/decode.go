package plan

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Plan is an ordered sequence of actions. Execution order is slice order.
type Plan []Action

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("plan decode failed")

// DecodeError reports translator output that is not a JSON array of objects.
type DecodeError struct {
	// Raw is the cleaned text that failed to decode.
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode plan: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// fenceMarkers are stripped from translator output, longest first.
var fenceMarkers = []string{"```json", "```JSON", "```"}

// Clean removes the code-fence markup translators commonly wrap around a JSON
// array and trims surrounding whitespace.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	for _, marker := range fenceMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}
	return strings.TrimSpace(text)
}

// Decode cleans text and parses it as a JSON array of action objects.
//
// Either the whole array decodes or a *DecodeError is returned; a partial
// plan is never produced. Field completeness is not checked here.
func Decode(text string) (Plan, error) {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil, &DecodeError{Raw: cleaned, Err: errors.New("empty response")}
	}

	var elems []jsoniter.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elems); err != nil {
		return nil, &DecodeError{Raw: cleaned, Err: fmt.Errorf("expected a JSON array: %w", err)}
	}
	if elems == nil {
		// The literal null unmarshals into a nil slice without error.
		return nil, &DecodeError{Raw: cleaned, Err: errors.New("expected a JSON array, got null")}
	}

	p := make(Plan, 0, len(elems))
	for i, raw := range elems {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			return nil, &DecodeError{Raw: cleaned, Err: fmt.Errorf("element %d is not a JSON object", i)}
		}
		p = append(p, FromRecord(rec))
	}
	return p, nil
}

// Kinds returns the kind of every action, in order.
func (p Plan) Kinds() []Kind {
	kinds := make([]Kind, len(p))
	for i, a := range p {
		kinds[i] = a.Kind()
	}
	return kinds
}
