// Package logger provides leveled logging for the evaluation service.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	minLevel  = InfoLevel
	stdLogger *log.Logger
)

// Init initializes the default logger with the specified level and format.
func Init(level string, format string) {
	switch strings.ToLower(level) {
	case "debug":
		minLevel = DebugLevel
	case "warn":
		minLevel = WarnLevel
	case "error":
		minLevel = ErrorLevel
	default:
		minLevel = InfoLevel
	}

	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	stdLogger = log.New(os.Stderr, "", flags)
}

func output(level Level, tag, format string, args ...interface{}) {
	if stdLogger == nil || level < minLevel {
		return
	}
	_ = stdLogger.Output(3, fmt.Sprintf(tag+format, args...))
}

func Debug(format string, args ...interface{}) {
	output(DebugLevel, "[DEBUG] ", format, args...)
}

func Info(format string, args ...interface{}) {
	output(InfoLevel, "[INFO] ", format, args...)
}

func Warn(format string, args ...interface{}) {
	output(WarnLevel, "[WARN] ", format, args...)
}

func Error(format string, args ...interface{}) {
	output(ErrorLevel, "[ERROR] ", format, args...)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	if stdLogger != nil {
		_ = stdLogger.Output(2, msg)
	}
	os.Exit(1)
}
