package pwm

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"rgblight-controller/internal/light"
)

// Logger is a dry-run backend. It remembers the last level per channel and
// logs changes at debug level.
type Logger struct {
	mu     sync.Mutex
	levels [3]uint16
	entry  *log.Entry
}

// NewLogger creates a Logger writing through the standard logrus logger.
func NewLogger() *Logger {
	return &Logger{entry: log.WithField("backend", "log")}
}

func (l *Logger) Write(ch light.Channel, duty uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch < light.Red || ch > light.Blue {
		return nil
	}
	if l.levels[ch] == duty {
		return nil
	}
	l.levels[ch] = duty
	l.entry.WithField("channel", ch.String()).Debugf("[PWM] duty %d", duty)
	return nil
}

// Levels returns the last written duty cycles.
func (l *Logger) Levels() [3]uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels
}

func (l *Logger) Close() error { return nil }
