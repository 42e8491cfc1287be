package videoio

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/thesyncim/videoio/engine"
)

func TestEngineLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	prev := Logger()
	SetLogger(logger)
	defer SetLogger(prev)

	tests := []struct {
		in   engine.LogLevel
		want logrus.Level
	}{
		{engine.LogLevelTrace, logrus.TraceLevel},
		{engine.LogLevelDebug, logrus.DebugLevel},
		{engine.LogLevelInfo, logrus.InfoLevel},
		{engine.LogLevelWarn, logrus.WarnLevel},
		{engine.LogLevelError, logrus.ErrorLevel},
		{engine.LogLevelFatal, logrus.ErrorLevel},
	}
	for _, tt := range tests {
		hook.Reset()
		engineLogSink(tt.in, "hello")
		e := hook.LastEntry()
		if e == nil {
			t.Fatalf("%v: nothing logged", tt.in)
		}
		if e.Level != tt.want {
			t.Errorf("%v logged at %v, want %v", tt.in, e.Level, tt.want)
		}
		if e.Message != "hello" || e.Data["source"] != "engine" {
			t.Errorf("%v entry = %q %v", tt.in, e.Message, e.Data)
		}
	}
}

func TestSetLoggerIgnoresNil(t *testing.T) {
	prev := Logger()
	SetLogger(nil)
	if Logger() != prev {
		t.Error("SetLogger(nil) replaced the logger")
	}
}
