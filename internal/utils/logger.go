package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const invalidLogLevelErrorFormat = "invalid log level %q: %w"

// NewApplicationLogger constructs a zap logger configured for human-readable
// console output on stderr at the given level.
func NewApplicationLogger(level string) (*zap.Logger, error) {
	parsedLevel, parseError := zapcore.ParseLevel(level)
	if parseError != nil {
		return nil, fmt.Errorf(invalidLogLevelErrorFormat, level, parseError)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsedLevel)
	config.Encoding = "console"
	config.DisableCaller = true
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	config.EncoderConfig.NameKey = ""
	config.EncoderConfig.CallerKey = ""
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.StacktraceKey = ""
	logger, buildError := config.Build()
	if buildError != nil {
		return nil, fmt.Errorf(LoggerInitializationFailedMessageFormat, buildError)
	}
	return logger, nil
}
