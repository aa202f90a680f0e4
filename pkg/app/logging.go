package app

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"ankimcp/internal/config"
)

// ParseLevel maps a config level name onto logrus. DEBUG=1 or DEBUG=true
// forces debug when no level is set; unknown names fall back to info.
func ParseLevel(name string) logrus.Level {
	level := strings.ToLower(strings.TrimSpace(name))
	if level == "" && (os.Getenv("DEBUG") == "1" || strings.EqualFold(os.Getenv("DEBUG"), "true")) {
		level = "debug"
	}
	switch level {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ConfigureLogging sends logrus output to stderr, and to cfg.File as well
// when one is set. stdout carries the protocol and is never written to. The
// returned func closes the log file, if any.
func ConfigureLogging(cfg config.LogConfig) func() {
	level := cfg.Level
	// "info" is the config default, so an explicit DEBUG still wins over it.
	if strings.EqualFold(level, "info") && os.Getenv("LOG_LEVEL") == "" {
		level = ""
	}
	logrus.SetLevel(ParseLevel(level))
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)

	lf := strings.TrimSpace(cfg.File)
	if lf == "" {
		return func() {}
	}
	lf = expandHome(lf)
	if err := os.MkdirAll(filepath.Dir(lf), 0o755); err != nil {
		logrus.WithError(err).Warn("failed to create directory for log file; using stderr only")
		return func() {}
	}
	f, err := os.OpenFile(lf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.WithError(err).Warn("failed to open log file; using stderr only")
		return func() {}
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	logrus.WithField("file", lf).Info("logging to file enabled")
	return func() { _ = f.Close() }
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
