package logger

import corelogger "github.com/kilianp07/arbitrage/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. The output format follows
// APP_ENV and the minimum level follows LOG_LEVEL.
func New(component string) Logger {
	return NewZerologLogger(component)
}
