package translate

import (
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// zapLeveledLogger routes retryablehttp's logging into zap.
type zapLeveledLogger struct {
	s *zap.SugaredLogger
}

var _ retryablehttp.LeveledLogger = zapLeveledLogger{}

func (l zapLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l zapLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
