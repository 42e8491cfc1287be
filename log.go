package videoio

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/videoio/engine"
)

var pkgLogger atomic.Pointer[logrus.FieldLogger]

func init() {
	var l logrus.FieldLogger = logrus.StandardLogger().WithField("component", "videoio")
	pkgLogger.Store(&l)
}

// SetLogger replaces the logger used by the package and for engine output
// redirected by Init.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		return
	}
	pkgLogger.Store(&l)
}

// Logger returns the package logger.
func Logger() logrus.FieldLogger {
	return *pkgLogger.Load()
}

// engineLogSink forwards engine log lines to the package logger.
func engineLogSink(level engine.LogLevel, msg string) {
	l := Logger().WithField("source", "engine")
	switch level {
	case engine.LogLevelTrace:
		l.Trace(msg)
	case engine.LogLevelDebug:
		l.Debug(msg)
	case engine.LogLevelInfo:
		l.Info(msg)
	case engine.LogLevelWarn:
		l.Warn(msg)
	default:
		l.Error(msg)
	}
}
