package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extraction struct {
	Decisions []string `json:"decisions"`
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"bare", `{"decisions":["ship it"]}`, []string{"ship it"}},
		{"fenced", "```json\n{\"decisions\":[\"ship it\"]}\n```", []string{"ship it"}},
		{"prose", "Sure! Here you go:\n{\"decisions\":[\"a\",\"b\"]}\nHope that helps.", []string{"a", "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeJSON[extraction](tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Decisions)
		})
	}
}

func TestDecodeJSONMalformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"decisions": [`, `{"decisions": 5}`} {
		_, err := DecodeJSON[extraction](raw)
		assert.ErrorIs(t, err, ErrMalformedOutput, raw)
	}
}

func TestDecodeJSONArray(t *testing.T) {
	got, err := DecodeJSON[[]string]("```\n[\"x\", \"y\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestNoop(t *testing.T) {
	_, err := Noop{}.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewSelectsProvider(t *testing.T) {
	c, err := New(Options{Provider: "none"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	c, err = New(Options{Provider: "openai"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	_, err = New(Options{Provider: "anthropic"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Options{Provider: "bogus"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL, "test-key", "llama-3.1-8b-instant", 0)
	out, err := c.Complete(context.Background(), "say hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAI(srv.URL, "k", "m", 0).Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

type slowCompleter struct{}

func (slowCompleter) Complete(ctx context.Context, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
		return "late", nil
	}
}

func TestWithTimeout(t *testing.T) {
	_, err := WithTimeout(slowCompleter{}, 10*time.Millisecond).Complete(context.Background(), "x")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
