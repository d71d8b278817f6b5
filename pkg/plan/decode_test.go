package plan

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allowUnexported = cmp.AllowUnexported(base{}, Navigate{}, Click{}, Type{}, ExtractText{}, End{}, Unknown{})

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain array",
			input: `[{"action":"end","message":"done"}]`,
			want:  `[{"action":"end","message":"done"}]`,
		},
		{
			name:  "json fence",
			input: "```json\n[{\"action\":\"end\"}]\n```",
			want:  `[{"action":"end"}]`,
		},
		{
			name:  "bare fence with surrounding whitespace",
			input: "  \n```\n[]\n```\n  ",
			want:  `[]`,
		},
		{
			name:  "not json is left alone",
			input: "not-json",
			want:  "not-json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestDecode_PreservesLengthAndOrder(t *testing.T) {
	input := `[
		{"action":"navigate","url":"https://example.com"},
		{"action":"type","selector":"#q","text":"gemini"},
		{"action":"click","selector":"#go"},
		{"action":"scroll","amount":3},
		{"action":"extract_text","selector":"h1","description":"heading"},
		{"action":"end","message":"done"}
	]`

	p, err := Decode(input)
	require.NoError(t, err)
	require.Len(t, p, 6)

	assert.Equal(t, []Kind{KindNavigate, KindType, KindClick, Kind("scroll"), KindExtractText, KindEnd}, p.Kinds())

	nav, ok := p[0].(*Navigate)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", nav.URL)

	typ, ok := p[1].(*Type)
	require.True(t, ok)
	assert.Equal(t, "#q", typ.Selector)
	assert.Equal(t, "gemini", typ.Text)

	unknown, ok := p[3].(*Unknown)
	require.True(t, ok)
	assert.Equal(t, "scroll", unknown.Name)
	assert.Equal(t, float64(3), unknown.Record()["amount"])

	extract, ok := p[4].(*ExtractText)
	require.True(t, ok)
	assert.Equal(t, "heading", extract.Description)

	end, ok := p[5].(*End)
	require.True(t, ok)
	assert.Equal(t, "done", end.Message)
}

func TestDecode_StripsFences(t *testing.T) {
	p, err := Decode("```json\n[{\"action\":\"navigate\",\"url\":\"https://example.com\"}]\n```")
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, KindNavigate, p[0].Kind())
}

func TestDecode_EmptyArray(t *testing.T) {
	p, err := Decode("[]")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Empty(t, p)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "not-json"},
		{name: "object instead of array", input: `{"action":"end"}`},
		{name: "null", input: "null"},
		{name: "string", input: `"navigate"`},
		{name: "truncated array", input: `[{"action":"navigate","url":"https://example.com"}`},
		{name: "non-object element", input: `[{"action":"end","message":"x"}, 42]`},
		{name: "null element", input: `[null]`},
		{name: "nested array element", input: `[[{"action":"end"}]]`},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.input)
			require.Error(t, err)
			assert.Nil(t, p, "no partial plan on failure")
			assert.True(t, errors.Is(err, ErrDecode))

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, Clean(tt.input), decodeErr.Raw)
		})
	}
}

func TestDecode_Idempotent(t *testing.T) {
	input := "```json\n" + `[
		{"action":"navigate","url":"https://example.com"},
		{"action":"click"},
		{"action":"hover","selector":"a"},
		{"action":"end","message":"done"}
	]` + "\n```"

	first, err := Decode(input)
	require.NoError(t, err)
	second, err := Decode(input)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, allowUnexported); diff != "" {
		t.Errorf("decoding twice produced different plans (-first +second):\n%s", diff)
	}
}

func TestDecode_DoesNotValidateFields(t *testing.T) {
	p, err := Decode(`[{"action":"navigate"},{"action":"type","selector":"#q","text":7}]`)
	require.NoError(t, err)
	require.Len(t, p, 2)

	err = p[0].Validate()
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, KindNavigate, missing.Kind)
	assert.Equal(t, []string{FieldURL}, missing.Fields)

	// Non-string values count as missing.
	err = p[1].Validate()
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{FieldText}, missing.Fields)
	assert.Contains(t, err.Error(), "type: missing required field(s) text")
}
