// Package parser separates reasoning blocks from the answer in LLM output.
package parser

import (
	"strings"

	"github.com/entrhq/brain/pkg/llm"
)

// openTags and closeTags are the reasoning delimiters emitted by the models we
// talk to. Gemini and OpenAI-compatible reasoning models use <thinking>;
// models served through Ollama (deepseek-r1, qwq) use <think>.
var (
	openTags  = map[string]bool{"<thinking>": true, "<think>": true}
	closeTags = map[string]bool{"</thinking>": true, "</think>": true}
)

// ThinkingParser parses streaming content and separates reasoning blocks from
// regular content. It keeps state across chunks so tags split between chunks
// are still recognized.
type ThinkingParser struct {
	buffer     strings.Builder
	tagBuffer  strings.Builder // Buffer for potential tag content between < and >
	inThinking bool
	inTag      bool // true when we're buffering a potential tag (saw '<' but not yet '>')
}

// NewThinkingParser creates a new thinking parser.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse processes a content chunk and returns separate chunks for thinking and
// message content. Either may be nil.
func (p *ThinkingParser) Parse(content string) (thinkingChunk, messageChunk *llm.StreamChunk) {
	if content == "" {
		return nil, nil
	}

	for _, ch := range content {
		switch {
		case ch == '<':
			// A second '<' means the previous one did not start a tag.
			if p.inTag {
				thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.flushTagBuffer())
			}
			if p.buffer.Len() > 0 {
				chunk := p.createChunk(p.buffer.String())
				p.buffer.Reset()
				thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, chunk)
			}
			p.inTag = true
			p.tagBuffer.Reset()
			p.tagBuffer.WriteRune(ch)

		case ch == '>' && p.inTag:
			p.tagBuffer.WriteRune(ch)
			tag := p.tagBuffer.String()
			p.tagBuffer.Reset()
			p.inTag = false

			switch {
			case openTags[tag]:
				p.inThinking = true
			case closeTags[tag]:
				p.inThinking = false
			default:
				thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.createChunk(tag))
			}

		case p.inTag:
			p.tagBuffer.WriteRune(ch)

		default:
			p.buffer.WriteRune(ch)
		}
	}

	if p.buffer.Len() > 0 {
		chunk := p.createChunk(p.buffer.String())
		p.buffer.Reset()
		thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, chunk)
	}

	return thinkingChunk, messageChunk
}

// flushTagBuffer flushes the current tag buffer as regular content
func (p *ThinkingParser) flushTagBuffer() *llm.StreamChunk {
	if p.tagBuffer.Len() == 0 {
		return nil
	}
	text := p.tagBuffer.String()
	p.tagBuffer.Reset()
	return p.createChunk(text)
}

func (p *ThinkingParser) createChunk(text string) *llm.StreamChunk {
	if text == "" {
		return nil
	}

	if p.inThinking {
		return &llm.StreamChunk{
			Content: text,
			Type:    llm.ContentTypeThinking,
		}
	}

	return &llm.StreamChunk{
		Content: text,
		Type:    llm.ContentTypeMessage,
	}
}

func (p *ThinkingParser) appendChunk(thinkingChunk, messageChunk, newChunk *llm.StreamChunk) (*llm.StreamChunk, *llm.StreamChunk) {
	if newChunk == nil {
		return thinkingChunk, messageChunk
	}

	if newChunk.Type == llm.ContentTypeThinking {
		if thinkingChunk == nil {
			return newChunk, messageChunk
		}
		thinkingChunk.Content += newChunk.Content
		return thinkingChunk, messageChunk
	}

	if messageChunk == nil {
		return thinkingChunk, newChunk
	}
	messageChunk.Content += newChunk.Content
	return thinkingChunk, messageChunk
}

// IsInThinking returns true if currently parsing thinking content.
func (p *ThinkingParser) IsInThinking() bool {
	return p.inThinking
}

// Flush returns any buffered content that hasn't been emitted yet.
// Call it at the end of a stream.
func (p *ThinkingParser) Flush() (thinkingChunk, messageChunk *llm.StreamChunk) {
	if p.inTag && p.tagBuffer.Len() > 0 {
		thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.flushTagBuffer())
		p.inTag = false
	}

	if p.buffer.Len() > 0 {
		text := p.buffer.String()
		p.buffer.Reset()
		thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.createChunk(text))
	}

	return thinkingChunk, messageChunk
}

// Reset resets the parser state for a new stream.
func (p *ThinkingParser) Reset() {
	p.buffer.Reset()
	p.tagBuffer.Reset()
	p.inThinking = false
	p.inTag = false
}

// Emit parses content and sends the resulting chunks, tagged with role, to
// send. It stops early and returns false if send does.
func (p *ThinkingParser) Emit(content, role string, send func(*llm.StreamChunk) bool) bool {
	thinking, message := p.Parse(content)
	return sendAll(role, send, thinking, message)
}

// EmitFlush flushes buffered content through send.
func (p *ThinkingParser) EmitFlush(role string, send func(*llm.StreamChunk) bool) bool {
	thinking, message := p.Flush()
	return sendAll(role, send, thinking, message)
}

func sendAll(role string, send func(*llm.StreamChunk) bool, chunks ...*llm.StreamChunk) bool {
	for _, c := range chunks {
		if c == nil {
			continue
		}
		if c.Role == "" {
			c.Role = role
		}
		if !send(c) {
			return false
		}
	}
	return true
}
