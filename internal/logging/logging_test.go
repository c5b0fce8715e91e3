package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/internal/config"
)

func TestNewEveryBackendWritesJSON(t *testing.T) {
	for _, backend := range []string{"zap", "logrus", "slog", "apex"} {
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			l, flush, err := New(config.Log{Backend: backend, Level: "info"}, &buf)
			require.NoError(t, err)

			l.Debug("hidden", nil)
			l.Warn("stale served", tagcache.Fields{"key": "k"})
			flush()

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 1, buf.String())
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
			assert.Contains(t, lines[0], "stale served")
			assert.Contains(t, lines[0], `"key"`)
		})
	}
}

func TestNewRejectsUnknownBackendAndLevel(t *testing.T) {
	_, _, err := New(config.Log{Backend: "glog", Level: "info"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = New(config.Log{Backend: "zap", Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestCLIHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := &CLIHandler{W: &buf, Now: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }}
	l := &log.Logger{Handler: h, Level: log.DebugLevel}

	l.WithField("addr", ":8080").Info("listening")
	assert.Equal(t, "2024-01-02 03:04:05 I listening addr=:8080\n", buf.String())
}
