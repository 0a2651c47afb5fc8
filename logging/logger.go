// Package logging provides structured logging for the repository analysis
// engine: one process-wide logger, context-scoped field loggers, and stream
// separation so errors route to stderr independently of info/debug/warn.
package logging

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is one of the standard severities.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Config controls logger construction.
type Config struct {
	Level      Level
	Format     string // "json" or "text"
	Service    string
	Version    string
	AddCaller  bool
	TimeFormat string
}

// DefaultConfig returns sensible defaults: text format, info level.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     "text",
		TimeFormat: time.RFC3339,
	}
}

// New creates a configured *logrus.Logger with stream-separated output.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	case LevelFatal:
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: cfg.TimeFormat, FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)
	logger.SetOutput(&streamSplitter{})

	return logger
}

// streamSplitter routes error-level log lines to stderr and everything else
// to stdout, so container log collectors can apply different handling per
// stream without parsing the structured payload themselves.
type streamSplitter struct{}

func (s *streamSplitter) Write(p []byte) (int, error) {
	if strings.Contains(string(p), "level=error") || strings.Contains(string(p), "level=fatal") ||
		strings.Contains(string(p), `"level":"error"`) || strings.Contains(string(p), `"level":"fatal"`) {
		return stderrWrite(p)
	}
	return stdoutWrite(p)
}

// Scoped attaches a fixed set of fields to every subsequent log call,
// following the component-tagging convention in SPEC_FULL.md §A
// (component=coordinator, repo_id=, scope_id=, ...).
type Scoped struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// NewScoped builds a Scoped logger with a base field set.
func NewScoped(logger *logrus.Logger, fields map[string]interface{}) *Scoped {
	base := make(logrus.Fields, len(fields))
	for k, v := range fields {
		base[k] = v
	}
	return &Scoped{logger: logger, fields: base}
}

// With returns a derived Scoped logger with additional fields merged in.
func (s *Scoped) With(fields map[string]interface{}) *Scoped {
	merged := make(logrus.Fields, len(s.fields)+len(fields))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Scoped{logger: s.logger, fields: merged}
}

// WithError attaches an error field.
func (s *Scoped) WithError(err error) *Scoped {
	return s.With(map[string]interface{}{"error": err.Error()})
}

// WithContext pulls a request/scope id out of ctx if present.
func (s *Scoped) WithContext(ctx context.Context) *Scoped {
	fields := map[string]interface{}{}
	if scopeID, ok := ctx.Value(scopeIDKey{}).(string); ok {
		fields["scope_id"] = scopeID
	}
	return s.With(fields)
}

type scopeIDKey struct{}

// WithScopeID returns a context carrying a scope id for WithContext to pick up.
func WithScopeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scopeIDKey{}, id)
}

func (s *Scoped) Debug(msg string)                    { s.logger.WithFields(s.fields).Debug(msg) }
func (s *Scoped) Debugf(format string, args ...any)    { s.logger.WithFields(s.fields).Debugf(format, args...) }
func (s *Scoped) Info(msg string)                      { s.logger.WithFields(s.fields).Info(msg) }
func (s *Scoped) Infof(format string, args ...any)     { s.logger.WithFields(s.fields).Infof(format, args...) }
func (s *Scoped) Warn(msg string)                      { s.logger.WithFields(s.fields).Warn(msg) }
func (s *Scoped) Warnf(format string, args ...any)     { s.logger.WithFields(s.fields).Warnf(format, args...) }
func (s *Scoped) Error(msg string)                     { s.logger.WithFields(s.fields).Error(msg) }
func (s *Scoped) Errorf(format string, args ...any)    { s.logger.WithFields(s.fields).Errorf(format, args...) }
