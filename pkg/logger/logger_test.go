package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToInfo(t *testing.T) {
	_, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestNewParsesLevel(t *testing.T) {
	_, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	// case and whitespace are forgiven
	_, err = New(Config{Level: " WARN "})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestNewPrettyOutput(t *testing.T) {
	_, err := New(Config{Level: "info", Pretty: true})
	assert.NoError(t, err)
}
