package convoylog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONLoggerWritesLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Writer: &buf, JSON: true})
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Writer: &buf, JSON: true})
	sub := Component(log, "tracking")
	sub.Info().Msg("hi")
	assert.Contains(t, buf.String(), `"component":"tracking"`)
}

func TestInfoBelowLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Writer: &buf, JSON: true})
	log.Info().Msg("should not appear")
	assert.Empty(t, buf.String())
}
