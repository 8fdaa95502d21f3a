package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger.Debug().Str("channel", "app::metrics").Msg("received event")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "received event", line["message"])
	require.Equal(t, "app::metrics", line["channel"])
}

func TestSetup_Errors(t *testing.T) {
	_, err := Setup(Config{Level: "loud"})
	require.Error(t, err)
	_, err = Setup(Config{Format: "xml"})
	require.Error(t, err)
}
