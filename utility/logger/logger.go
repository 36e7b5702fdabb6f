package logger

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	log "github.com/jeanphorn/log4go"
)

var (
	mu    sync.RWMutex
	level = log.DEBUG
	l     = log.NewDefaultLogger(log.DEBUG)
)

// SetLevel replaces the shared logger with one filtering below the named level
func SetLevel(name string) {
	lvl := parseLevel(name)
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	l = log.NewDefaultLogger(lvl)
}

func parseLevel(name string) log.Level {
	switch strings.ToUpper(name) {
	case "TRACE":
		return log.TRACE
	case "INFO":
		return log.INFO
	case "WARNING", "WARN":
		return log.WARNING
	case "ERROR":
		return log.ERROR
	default:
		return log.DEBUG
	}
}

// Info log information
func Info(arg0 interface{}, args ...interface{}) {
	write(log.INFO, arg0, args...)
}

// Debug log debug
func Debug(arg0 interface{}, args ...interface{}) {
	write(log.DEBUG, arg0, args...)
}

// Warning log warnings
func Warning(arg0 interface{}, args ...interface{}) {
	write(log.WARNING, arg0, args...)
}

// Error log errors
func Error(arg0 interface{}, args ...interface{}) {
	write(log.ERROR, arg0, args...)
}

// Fatal log fatal errors
func Fatal(arg0 interface{}, args ...interface{}) {
	write(log.CRITICAL, arg0, args...)
	mu.RLock()
	l.Close()
	mu.RUnlock()
	os.Exit(1)
}

func write(lvl log.Level, arg0 interface{}, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if lvl < level {
		return
	}
	l.Log(lvl, getSource(), format(arg0, args...))
}

func format(arg0 interface{}, args ...interface{}) string {
	switch first := arg0.(type) {
	case string:
		if len(args) == 0 {
			return first
		}
		return fmt.Sprintf(first, args...)
	case error:
		return fmt.Sprint(append([]interface{}{first.Error(), " "}, args...)...)
	default:
		return fmt.Sprint(append([]interface{}{first, " "}, args...)...)
	}
}

func getSource() (source string) {
	if pc, _, line, ok := runtime.Caller(3); ok {
		source = fmt.Sprintf("%s:%d", runtime.FuncForPC(pc).Name(), line)
	}
	return
}
