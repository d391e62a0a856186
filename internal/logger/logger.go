package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It discards everything until Init is called
// so packages can log freely from tests.
var Log = zap.NewNop()

// Init builds the process logger. Debug mode switches to the development
// encoder with debug level enabled.
func Init(debug bool) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		// Fall back to the example logger
		l = zap.NewExample()
	}
	Log = l
}

// Sync flushes buffered log entries. Call before exit.
func Sync() {
	_ = Log.Sync()
}
