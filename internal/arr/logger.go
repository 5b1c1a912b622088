package arr

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fatih/color"
)

// LogLevel orders log severities; a logger drops messages below its level
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// fatih/color turns colouring off by itself when stdout is not a terminal
var levelColors = [...]*color.Color{
	color.New(color.FgHiBlack),
	color.New(color.FgCyan),
	color.New(color.FgYellow),
	color.New(color.FgRed, color.Bold),
}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

func (l LogLevel) tag() string {
	if l < LogLevelDebug || l > LogLevelError {
		return l.String()
	}
	return levelColors[l].Sprint(levelNames[l])
}

// StandardLogger writes "[LEVEL] message" lines through a stdlib log.Logger
type StandardLogger struct {
	level  LogLevel
	logger *log.Logger
}

// NewStandardLogger logs to the default stdlib logger
func NewStandardLogger(levelStr string) Logger {
	return &StandardLogger{level: parseLogLevel(levelStr), logger: log.Default()}
}

// NewStandardLoggerTo logs to w with the standard date and time prefix
func NewStandardLoggerTo(levelStr string, w io.Writer) Logger {
	return &StandardLogger{level: parseLogLevel(levelStr), logger: log.New(w, "", log.LstdFlags)}
}

func (l *StandardLogger) Debug(msg string, args ...interface{}) { l.logf(LogLevelDebug, msg, args) }
func (l *StandardLogger) Info(msg string, args ...interface{})  { l.logf(LogLevelInfo, msg, args) }
func (l *StandardLogger) Warn(msg string, args ...interface{})  { l.logf(LogLevelWarn, msg, args) }
func (l *StandardLogger) Error(msg string, args ...interface{}) { l.logf(LogLevelError, msg, args) }

// Level returns the minimum level written
func (l *StandardLogger) Level() LogLevel {
	return l.level
}

func (l *StandardLogger) logf(level LogLevel, msg string, args []interface{}) {
	if level < l.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.Printf("[%s] %s", level.tag(), msg)
}

// parseLogLevel maps LOG_LEVEL values onto a LogLevel; unknown values mean INFO
func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
