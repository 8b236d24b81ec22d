// Package llm wraps the chat completion service every analysis stage and the
// follow-up engine talk to.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of a completion request.
type Message struct {
	Role    string
	Content string
}

// Options carries optional per-call parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

type Option func(*Options)

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Client is the contract for any completion backend. A single attempt is made
// per call; callers decide whether a failure degrades or surfaces.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts ...Option) (string, error)
}
