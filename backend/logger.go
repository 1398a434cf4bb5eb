package backend

import "go.uber.org/zap"

// Logger is the narrow logging surface backend and worker code depends on,
// already implied by orchestration.go's w.logger.Debugf/Infof/Warnf calls.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// zapLogger adapts a *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// DefaultLogger returns a production-configured zap logger adapted to the
// Logger interface, used by hubs/workers that don't supply their own.
func DefaultLogger() Logger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.Sugar()}
}

// NewLogger wraps a caller-supplied *zap.Logger, letting hosts reuse their
// own zap configuration (sinks, sampling, level) for the engine's logs.
func NewLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.Sugar()}
}

func (z *zapLogger) Debug(v ...interface{})                 { z.s.Debug(v...) }
func (z *zapLogger) Debugf(format string, v ...interface{}) { z.s.Debugf(format, v...) }
func (z *zapLogger) Info(v ...interface{})                  { z.s.Info(v...) }
func (z *zapLogger) Infof(format string, v ...interface{})  { z.s.Infof(format, v...) }
func (z *zapLogger) Warn(v ...interface{})                  { z.s.Warn(v...) }
func (z *zapLogger) Warnf(format string, v ...interface{})  { z.s.Warnf(format, v...) }
func (z *zapLogger) Error(v ...interface{})                 { z.s.Error(v...) }
func (z *zapLogger) Errorf(format string, v ...interface{}) { z.s.Errorf(format, v...) }
