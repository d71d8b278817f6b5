package llm

// ContentType distinguishes reasoning output from the answer itself.
type ContentType string

const (
	ContentTypeMessage  ContentType = "message"
	ContentTypeThinking ContentType = "thinking"
)

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Error    error
	Content  string
	Role     string
	Type     ContentType
	Finished bool
}

// IsError returns true if the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}
