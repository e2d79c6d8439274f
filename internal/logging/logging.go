// Package logging builds the zap-backed logr.Logger used by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level configures the verbosity of the logging.
type Level zapcore.Level

const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	WarnLevel  = Level(zapcore.WarnLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

// ParseLevel converts a level name such as "debug" or "info".
func ParseLevel(level string) (Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return InfoLevel, fmt.Errorf("logging: %w", err)
	}
	return Level(l), nil
}

// Mode selects the output encoding.
type Mode int8

const (
	// ModeProd writes JSON lines.
	ModeProd Mode = iota
	// ModeDev writes human readable console lines with stack traces on
	// warnings.
	ModeDev
)

// ParseMode accepts "production" or "development".
func ParseMode(mode string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "production", "prod":
		return ModeProd, nil
	case "development", "dev":
		return ModeDev, nil
	default:
		return ModeProd, fmt.Errorf("logging: unknown mode %q", mode)
	}
}

// Options holds the logger settings.
type Options struct {
	Level  Level
	Mode   Mode
	Writer io.Writer
}

// Opt mutates Options.
type Opt func(*Options)

// WriteTo sends output to w instead of standard error.
func WriteTo(w io.Writer) Opt {
	return func(o *Options) {
		o.Writer = w
	}
}

// SetLevel sets the minimum enabled level.
func SetLevel(level Level) Opt {
	return func(o *Options) {
		o.Level = level
	}
}

// SetMode sets the output mode.
func SetMode(mode Mode) Opt {
	return func(o *Options) {
		o.Mode = mode
	}
}

// NewLogger builds a logr.Logger over zap. logr verbosity V(n) maps to zap
// level -n, so V(1) is enabled at debug level.
func NewLogger(opts ...Opt) logr.Logger {
	o := &Options{Level: InfoLevel}
	for _, opt := range opts {
		opt(o)
	}
	if o.Writer == nil {
		o.Writer = os.Stderr
	}

	var encoder zapcore.Encoder
	zapOpts := []zap.Option{}
	if o.Mode == ModeDev {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		zapOpts = append(zapOpts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(o.Writer), zap.NewAtomicLevelAt(zapcore.Level(o.Level)))
	return zapr.NewLogger(zap.New(core, zapOpts...))
}
