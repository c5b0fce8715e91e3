package logrus

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/tagcache"
)

func TestLogrusLoggerForwardsFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	base.SetOutput(io.Discard)
	l := LogrusLogger{E: logrus.NewEntry(base)}

	l.Info("tag invalidated", tagcache.Fields{"tag": "x", "count": 2})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.InfoLevel || e.Message != "tag invalidated" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Data["tag"] != "x" || e.Data["count"] != 2 {
		t.Fatalf("fields: %v", e.Data)
	}
}
