// Package logger builds the service's zap logger.
package logger

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogFileName = "prediction.log"

	defaultRotateMaxSize    = 100
	defaultRotateMaxAge     = 7
	defaultRotateMaxBackups = 10
	encodeTimeFormat        = "2006-01-02 15:04:05.000"
)

type Config struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	Dir     string `yaml:"dir"`

	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// New returns a console logger when cfg.Console is set, otherwise a JSON
// logger writing to a rotated file under cfg.Dir.
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.Console {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		log, err := config.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
		if err != nil {
			return nil, err
		}
		return log.Sugar(), nil
	}

	return newFileLogger(filepath.Join(cfg.Dir, LogFileName), level, cfg).Sugar(), nil
}

func newFileLogger(filePath string, level zapcore.Level, cfg Config) *zap.Logger {
	rotateConfig := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    orDefault(cfg.MaxSizeMB, defaultRotateMaxSize),
		MaxAge:     orDefault(cfg.MaxAgeDays, defaultRotateMaxAge),
		MaxBackups: orDefault(cfg.MaxBackups, defaultRotateMaxBackups),
		LocalTime:  true,
		Compress:   cfg.Compress,
	}
	syncer := zapcore.AddSync(rotateConfig)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(encodeTimeFormat)

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		syncer,
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// ParseLevel accepts zap level names; empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
