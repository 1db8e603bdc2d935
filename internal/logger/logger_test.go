package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterAddsServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("chat-server", &buf)

	log.Info().Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "chat-server", line["service"])
	assert.Equal(t, "hello", line["message"])
	assert.Contains(t, line, "time")
}

func TestStackIsRenderedForPlainErrors(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("chat-server", &buf)

	log.Error().Stack().Err(errors.New("boom")).Msg("failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Contains(t, line, "stack")
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.Equal(t, zerolog.DebugLevel, SetLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, SetLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, SetLevel("chatty"))
	assert.Equal(t, zerolog.InfoLevel, SetLevel(""))
}
