// Package llm provides abstractions for the translator that turns a
// natural-language instruction into plan text.
//
// Example usage:
//
//	provider, err := gemini.NewProvider(ctx, os.Getenv("GEMINI_API_KEY"),
//	    gemini.WithModel("gemini-1.5-flash-latest"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	msg, err := provider.Complete(ctx, []*types.Message{
//	    types.NewUserMessage(prompt),
//	})
package llm

import (
	"context"
	"fmt"

	"github.com/entrhq/brain/pkg/types"
)

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. Reasoning blocks (<think>, <thinking>) are split into
// ContentTypeThinking chunks so callers interested only in the answer can
// ignore them.
type Provider interface {
	// StreamCompletion sends messages to the LLM and streams back response chunks.
	//
	// The channel is closed when streaming completes or an error occurs.
	// Returns an error only if streaming cannot be initiated. Stream-time
	// errors are sent as StreamChunk instances with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the LLM and returns the full response.
	//
	// Only message content is accumulated; thinking chunks are dropped.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the LLM model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// Collect drains a chunk stream into a single assistant message. It is the
// shared implementation of Provider.Complete.
//
// A producer stops sending once ctx is done, so a cancelled ctx makes the
// result an error even when the stream closed without one.
func Collect(ctx context.Context, stream <-chan *StreamChunk) (*types.Message, error) {
	var content string
	var role string
	var streamErr error

	for chunk := range stream {
		if chunk.IsError() {
			// Keep draining so the producer goroutine can exit.
			if streamErr == nil {
				streamErr = chunk.Error
			}
			continue
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		if chunk.Type == ContentTypeThinking {
			continue
		}
		content += chunk.Content
	}

	if streamErr != nil {
		return nil, streamErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("stream interrupted: %w", err)
	}

	// Default to assistant role if not set
	if role == "" {
		role = string(types.RoleAssistant)
	}

	return &types.Message{
		Role:    types.MessageRole(role),
		Content: content,
	}, nil
}
