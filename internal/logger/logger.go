/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package logger provides a leveled logger that library callers can silence.
package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

// Level filters which messages are written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

var (
	mu     sync.RWMutex
	level  = LevelInfo
	logger = log.New(os.Stderr, "", 0)
)

// SetOutput configures the logger output destination.
// Use io.Discard to silence all logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// ParseLevel maps "debug", "info", "warn", "error", "silent" to a Level.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "silent", "quiet":
		return LevelSilent, true
	default:
		return LevelInfo, false
	}
}

func logf(l Level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return
	}
	logger.Printf(prefix+format, args...)
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	logf(LevelDebug, "debug: ", format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	logf(LevelInfo, "", format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	logf(LevelWarn, "warning: ", format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	logf(LevelError, "error: ", format, args...)
}
