package logger

import (
	"os"

	"go.uber.org/zap"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Printf(format string, args ...any)
	Fatalf(format string, args ...any)
}

func init() {
	if _, err := Init(os.Getenv("APP_ENV")); err != nil {
		panic(err)
	}
}

// Init replaces the package logger. "production" selects the JSON encoder,
// anything else the console development encoder.
func Init(env string) (*ZapLogger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	return NewLogger(config)
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Fatal(err error, values ...any) {
	GetLogger().Fatal(err, values...)
}

func Sync() {
	_ = GetLogger().log.Sync()
}
