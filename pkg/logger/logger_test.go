package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
}

func TestNew_JSONConServicio(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Service: "prospectos-api", Output: &buf})

	l.Info().Msg("descartado")
	l.Warn().Str("lead_id", "lead-1").Msg("transición forzada")

	out := buf.String()
	assert.NotContains(t, out, "descartado")
	assert.Contains(t, out, `"service":"prospectos-api"`)
	assert.Contains(t, out, `"lead_id":"lead-1"`)
}
