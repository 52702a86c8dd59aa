// Package llm is the chat-generation boundary. The rest of the service talks
// to the Generator interface; the concrete client speaks the Anthropic
// messages API over HTTP and classifies failures so callers can tell a
// retryable throttle from a terminal error without matching message text.
package llm

import (
	"context"
	"errors"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

// ErrThrottled marks a rate-limit or overload rejection. Callers may retry
// with backoff; any other generation error is terminal.
var ErrThrottled = errors.New("llm: throttled")

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is one generation call: the full ordered thread plus the persona
// system prompt and the capability tier the difficulty selector asked for.
type Request struct {
	System    string
	Messages  []Message
	Tier      hunt.ModelTier
	MaxTokens int
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
