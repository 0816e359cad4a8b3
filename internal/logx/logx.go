package logx

import (
	"os"

	"github.com/ariefcatur/restobill/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger and installs it as the zap global.
// With LOG_FILE set, JSON lines also go to a rotating file.
func New(cfg config.LogConfig, service string) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zap.DebugLevel)
	encCfg := zap.NewDevelopmentEncoderConfig()
	if cfg.Mode == "production" {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
		encCfg = zap.NewProductionEncoderConfig()
	}

	out, outPath := os.Stdout, "stdout"
	if cfg.Stderr {
		out, outPath = os.Stderr, "stderr"
	}

	var logger *zap.Logger
	if cfg.File != "" {
		rotate := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotate), level),
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(out), level),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var zcfg zap.Config
		if cfg.Mode == "production" {
			zcfg = zap.NewProductionConfig()
		} else {
			zcfg = zap.NewDevelopmentConfig()
		}
		zcfg.OutputPaths = []string{outPath}
		var err error
		logger, err = zcfg.Build(zap.AddCaller())
		if err != nil {
			return nil, err
		}
	}

	logger = logger.With(zap.String("service", service))
	zap.ReplaceGlobals(logger)
	return logger, nil
}
