package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", &buf)
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log.Info().Msg("hidden")
	require.Zero(t, buf.Len())
	log.Warn().Str("root", "00").Msg("shown")
	require.Contains(t, buf.String(), `"root":"00"`)
	require.Contains(t, buf.String(), `"time"`)

	log, err = New("", &buf)
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, log.GetLevel())

	_, err = New("loud", &buf)
	require.Error(t, err)
}
