package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"k": 2})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "simulation", "debug").With(map[string]any{"run_id": "r1"})
	l.Infow("step", map[string]any{"action": "charge", "price": 12.5})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "simulation", line["component"])
	assert.Equal(t, "r1", line["run_id"])
	assert.Equal(t, "charge", line["action"])
	assert.Equal(t, 12.5, line["price"])
	assert.Equal(t, "info", line["level"])
}

func TestZerologLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "c", "warn")
	l.Infof("hidden")
	l.Debugw("hidden", nil)
	l.Warnf("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	buf.Reset()
	NewWithWriter(&buf, "c", "bogus").Infof("default info")
	assert.Contains(t, buf.String(), "default info")
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infow("x", nil)
	l.Errorf("y")
}
