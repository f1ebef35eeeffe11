package infra

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/picvault/picvault-service/config"
)

// LoggerClient wraps a zap sugared logger behind the printf-with-context
// methods the rest of the service logs through.
type LoggerClient struct {
	sugar *zap.SugaredLogger
}

func InitLoggerClient(cfg *config.EnvConfig) *LoggerClient {
	var zcfg zap.Config
	if cfg.Environment.Mode == "development" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.OutputPaths = []string{"stdout"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic("Failed to build logger: " + err.Error())
	}

	return &LoggerClient{sugar: logger.Sugar()}
}

func (l *LoggerClient) InfoWithContextf(_ context.Context, format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *LoggerClient) WarningWithContextf(_ context.Context, format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *LoggerClient) ErrorWithContextf(_ context.Context, err error, format string, args ...interface{}) {
	if err != nil {
		l.sugar.With("error", err).Errorf(format, args...)
		return
	}
	l.sugar.Errorf(format, args...)
}

func (l *LoggerClient) Sync() {
	_ = l.sugar.Sync()
}
