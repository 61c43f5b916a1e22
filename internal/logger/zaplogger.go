package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

type ZapLogger struct {
	log *zap.SugaredLogger
}

var current atomic.Pointer[ZapLogger]

func NewLogger(config zap.Config) (*ZapLogger, error) {
	built, err := config.Build()
	if err != nil {
		return nil, err
	}
	built = built.WithOptions(zap.AddCallerSkip(2))
	l := &ZapLogger{log: built.Sugar()}
	current.Store(l)
	return l, nil
}

// UseNop silences the package logger. Tests call it to keep output clean.
func UseNop() {
	current.Store(&ZapLogger{log: zap.NewNop().Sugar()})
}

func GetLogger() *ZapLogger {
	l := current.Load()
	if l == nil {
		panic("logger not initialized")
	}
	return l
}

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

func (l *ZapLogger) Printf(format string, args ...any) {
	l.log.Infof(format, args...)
}

func (l *ZapLogger) Fatalf(format string, args ...any) {
	l.log.Fatalf(format, args...)
}
