package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	log, closer, err := New(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info().Int("gen", 3).Msg("generation")
	log.Trace().Msg("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"gen":3`)
	assert.Contains(t, string(data), `"message":"generation"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestBuildFormats(t *testing.T) {
	t.Parallel()

	var js bytes.Buffer
	jsLog := build(&js, "json", "", zerolog.InfoLevel)
	jsLog.Info().Msg("hello")
	assert.Contains(t, js.String(), `"level":"info"`)

	var con bytes.Buffer
	conLog := build(&con, "console", "", zerolog.InfoLevel)
	conLog.Info().Msg("hello")
	assert.Contains(t, con.String(), "hello")
	assert.NotContains(t, con.String(), `"message"`)

	var quiet bytes.Buffer
	quietLog := build(&quiet, "json", "", zerolog.WarnLevel)
	quietLog.Info().Msg("hello")
	assert.Empty(t, quiet.String())
}
