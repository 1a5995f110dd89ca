// Package log provides the namespaced, colorized debug logger used throughout
// the engine core. It mirrors the standard library's log.Logger but adds a
// per-instance prefix and an opt-in debug level gated by the DEBUG
// environment variable, following the `DEBUG=socket.io:*` convention of the
// reference JS implementation.
package log

import (
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/gookit/color"
)

const (
	Ldate         int = log.Ldate
	Ltime         int = log.Ltime
	Lmicroseconds int = log.Lmicroseconds
	Lshortfile    int = log.Lshortfile
	LUTC          int = log.LUTC
	LstdFlags     int = log.LstdFlags
)

var (
	// DEBUG enables Debug-level output for every Log regardless of its
	// namespace. It is false unless set from code; the DEBUG environment
	// variable is consulted per instance by NewLog instead.
	DEBUG bool = false
	// Output is the writer NewLog hands to each Log it creates; changing it
	// affects only loggers created afterwards.
	Output io.Writer = os.Stderr
	Flags  int       = 0
)

// Log is a namespaced logger. Create one per component with NewLog("socket.io:socket")
// and the namespace is used both as the line prefix and as the pattern matched
// against the DEBUG environment variable.
type Log struct {
	*log.Logger

	namespace       string
	namespaceRegexp *regexp.Regexp
	debug           atomic.Bool
}

// NewLog creates a logger tagged with namespace. If the DEBUG environment
// variable is set, namespace is matched against it (with `*` as a wildcard)
// to decide whether Debug output is active for this instance.
func NewLog(namespace string) *Log {
	l := &Log{
		Logger:    log.New(Output, "["+namespace+"] ", Flags),
		namespace: namespace,
	}
	if pattern := os.Getenv("DEBUG"); pattern != "" {
		re := regexp.MustCompile("^" + strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSpace(pattern)), `\*`, `.*`) + "$")
		l.namespaceRegexp = re
		l.debug.Store(re.MatchString(namespace))
	}
	return l
}

func (l *Log) Namespace() string { return l.namespace }

// Debug prints message only when this namespace is active under DEBUG.
func (l *Log) Debug(message string, args ...any) {
	if DEBUG || l.debug.Load() {
		l.Logger.Println(color.Debug.Sprintf(message, args...))
	}
}

func (l *Log) Info(message string, args ...any) {
	l.Logger.Println(color.Info.Sprintf(message, args...))
}

func (l *Log) Warning(message string, args ...any) {
	l.Logger.Println(color.Warn.Sprintf(message, args...))
}

func (l *Log) Error(message string, args ...any) {
	l.Logger.Println(color.Danger.Sprintf(message, args...))
}
