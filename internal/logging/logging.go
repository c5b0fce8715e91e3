package logging

import (
	"fmt"
	"io"
	stdslog "log/slog"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	apexjson "github.com/apex/log/handlers/json"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/internal/config"
	apexlog "github.com/unkn0wn-root/tagcache/log/apex"
	logruslog "github.com/unkn0wn-root/tagcache/log/logrus"
	slogl "github.com/unkn0wn-root/tagcache/log/slog"
	zaplog "github.com/unkn0wn-root/tagcache/log/zap"
)

// New builds the registry logger for cfg.Backend writing JSON lines to w.
// The returned func flushes buffered output.
func New(cfg config.Log, w io.Writer) (tagcache.Logger, func(), error) {
	level := strings.ToLower(cfg.Level)
	switch cfg.Backend {
	case "zap":
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, err
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			lvl,
		)
		l := zap.New(core)
		return zaplog.ZapLogger{L: l}, func() { _ = l.Sync() }, nil

	case "logrus":
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, err
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		l.SetFormatter(&logrus.JSONFormatter{})
		return logruslog.LogrusLogger{E: logrus.NewEntry(l)}, func() {}, nil

	case "slog":
		sl, err := Slog(cfg, w)
		if err != nil {
			return nil, nil, err
		}
		return slogl.Logger{L: sl}, func() {}, nil

	case "apex":
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return nil, nil, err
		}
		return apexlog.ApexLogger{L: &log.Logger{Handler: apexjson.New(w), Level: lvl}}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
}

// Slog returns a JSON slog logger at cfg.Level, used for sloghooks.
func Slog(cfg config.Log, w io.Writer) (*stdslog.Logger, error) {
	var lvl stdslog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}
	return stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: lvl})), nil
}

// InitCLI sets up apex as the command line's own diagnostic logger with the
// level from TAGCACHE_CLI_LOG.
func InitCLI() {
	level := strings.ToUpper(os.Getenv("TAGCACHE_CLI_LOG"))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&CLIHandler{W: os.Stderr})
	log.SetLevelFromString(level)
}

// CLIHandler writes "<time> <L> <message> k=v..." lines.
type CLIHandler struct {
	W   io.Writer
	Now func() time.Time
}

func (h *CLIHandler) HandleLog(e *log.Entry) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", now().Format("2006-01-02 15:04:05"), strings.ToUpper(e.Level.String()), e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(h.W, b.String())
	return err
}
