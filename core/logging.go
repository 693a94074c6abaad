package core

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// LogConfig selects the level and destination of a ZapLogger.
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	ShowCaller bool   `yaml:"show_caller"`
	File       string `yaml:"file"`
}

// ZapLogger adapts a zap sugared logger to Logger. SetDebug flips the atomic level
// between debug and the configured level.
type ZapLogger struct {
	mu     sync.Mutex
	prefix string
	base   zapcore.Level
	level  zap.AtomicLevel
	sugar  *zap.SugaredLogger
}

func NewZapLogger(prefix string, cfg LogConfig) (*ZapLogger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	base := parseLevel(cfg.Level)
	config.Level = zap.NewAtomicLevelAt(base)
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.StacktraceKey = ""
	if !cfg.ShowCaller {
		config.EncoderConfig.CallerKey = ""
	}
	if cfg.File != "" {
		config.OutputPaths = []string{cfg.File}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	sugar := logger.Sugar()
	if prefix != "" {
		sugar = sugar.Named(prefix)
	}
	return &ZapLogger{
		prefix: prefix,
		base:   base,
		level:  config.Level,
		sugar:  sugar,
	}, nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) DebugEnabled() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

func (l *ZapLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enabled {
		l.level.SetLevel(zapcore.DebugLevel)
	} else {
		l.level.SetLevel(l.base)
	}
}

func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

type nopLogger struct{}

func NewNopLogger() Logger                             { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
