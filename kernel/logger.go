package kernel

import "go.uber.org/zap"

// Logger is the facade's diagnostic sink, kept to the teacher's own narrow
// consumer shape (cache/runtime/manager.go's Logger) rather than importing
// a full structured-logging interface — callers that already have a zap,
// logrus, or stdlib logger can satisfy this with one line.
type Logger interface {
	Printf(string, ...any)
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds the default Logger, backed by zap's production
// configuration (JSON, info level) per SPEC_FULL.md §1.1.
func NewZapLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Printf(format string, args ...any) {
	z.sugar.Infof(format, args...)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// NewNoopLogger returns a Logger that discards everything, for tests and
// benchmarks that don't want production JSON logging on the critical
// path.
func NewNoopLogger() Logger { return noopLogger{} }
