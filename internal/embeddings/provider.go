// Package embeddings turns text into fixed-length vectors for the memory store.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyText is returned for blank input.
var ErrEmptyText = errors.New("empty text")

// Provider embeds text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Close releases resources held by p, such as a cache's background
// goroutines. Providers without any are left alone.
func Close(p Provider) {
	if c, ok := p.(interface{ Close() }); ok {
		c.Close()
	}
}

// Options selects and configures a provider.
type Options struct {
	Provider   string // hash | ollama
	Model      string
	OllamaURL  string
	Dimensions int
	CacheSize  int64
	Timeout    time.Duration
}

// New builds the provider named in opts, wrapped in a cache when
// opts.CacheSize is positive.
func New(opts Options) (Provider, error) {
	var p Provider
	switch opts.Provider {
	case "hash", "":
		p = NewHash(opts.Dimensions)
	case "ollama":
		p = NewOllama(opts.OllamaURL, opts.Model, opts.Timeout)
	default:
		return nil, fmt.Errorf("unsupported embed provider: %s", opts.Provider)
	}
	if opts.CacheSize > 0 {
		cached, err := NewCached(p, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		p = cached
	}
	return p, nil
}
