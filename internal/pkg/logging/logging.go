package logging

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func DefaultConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Sampling = nil
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return logConf
}

// New builds a production logger at the given level string, e.g. "debug".
func New(level string) (*zap.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	logConf := DefaultConfig()
	logConf.Level = zap.NewAtomicLevelAt(parsed)
	return logConf.Build()
}

func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))
	switch l {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		level, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, err
		}
		return zapcore.Level(level), nil
	}
}
