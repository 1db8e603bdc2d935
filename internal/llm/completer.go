// Package llm wraps the text-completion collaborators used by the memory
// layer and the chat features. Every implementation is a pure
// prompt-in/text-out call that may fail.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotConfigured is returned by the no-op completer.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrMalformedOutput marks a completion that could not be parsed.
	ErrMalformedOutput = errors.New("malformed llm output")
	// ErrEmptyCompletion is returned when the provider answers with no text.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Noop is the completer used when no provider is configured.
// Every call fails, so callers take their fallback path.
type Noop struct{}

func (Noop) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// Options selects and configures a provider.
type Options struct {
	Provider      string // anthropic | openai | none
	Model         string
	AnthropicKey  string
	OpenAIKey     string
	OpenAIBaseURL string
	MaxTokens     int64
	Timeout       time.Duration
}

// New builds the completer for opts.Provider.
func New(opts Options, log zerolog.Logger) (Completer, error) {
	var c Completer
	switch opts.Provider {
	case "anthropic":
		if opts.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		c = NewAnthropic(opts.AnthropicKey, opts.Model, opts.MaxTokens)
	case "openai":
		if opts.OpenAIKey == "" {
			log.Warn().Msg("openai provider selected without API key; AI features will use fallbacks")
			return Noop{}, nil
		}
		c = NewOpenAI(opts.OpenAIBaseURL, opts.OpenAIKey, opts.Model, opts.MaxTokens)
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", opts.Provider)
	}
	if opts.Timeout > 0 {
		c = WithTimeout(c, opts.Timeout)
	}
	return c, nil
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call to next.
func WithTimeout(next Completer, timeout time.Duration) Completer {
	return &timeoutCompleter{next: next, timeout: timeout}
}

func (t *timeoutCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, prompt)
}
