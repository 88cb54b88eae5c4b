package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, false, zerolog.WarnLevel)

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("channel", "<updated>").Msg("shown")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "<updated>", line["channel"])
	assert.Contains(t, line, "time")
}

func TestNew_DevModeIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, true, zerolog.DebugLevel)

	log.Debug().Msg("frame loop started")
	assert.Contains(t, buf.String(), "frame loop started")
	assert.False(t, json.Valid(buf.Bytes()))
}
