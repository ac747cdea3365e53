// Package logging sets up the operational log of the harness: the messages about swapping
// configuration, resetting the store, and running the server, as opposed to the per-test
// output that the framework package captures.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/felina/server-contract-tests/framework"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger that writes human-readable lines to stderr. Debug messages are only
// written if debug is true.
func New(debug bool) *zap.SugaredLogger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter is like New but writes to w.
func NewWithWriter(w io.Writer, debug bool) *zap.SugaredLogger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeCaller = nil
	encoderConfig.CallerKey = ""
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

type printfLogger struct {
	logger *zap.SugaredLogger
}

// Printf adapts a zap logger to framework.Logger. Messages are logged at debug level.
func Printf(logger *zap.SugaredLogger) framework.Logger {
	if logger == nil {
		return framework.NullLogger()
	}
	return printfLogger{logger: logger}
}

func (p printfLogger) Printf(message string, args ...interface{}) {
	p.logger.Debug(fmt.Sprintf(message, args...))
}
