// ABOUTME: Tests for logger construction
// ABOUTME: Checks the service field and stack marshaling of wrapped errors
package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterAddsServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "sync")
	log.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sync", entry["service"])
	assert.Equal(t, "hello", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestErrorStacks(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "dispatch")
	log.Error().Stack().Err(errors.New("boom")).Msg("failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "stack")
}
