// Package log provides the leveled logging used throughout easyhttp.
//
// It keeps the style of the proxy this client's internals are modeled on:
// plain *log.Logger instances with level prefixes, a package-level debug
// flag, and Errorf/Fatalf helpers that keep call-site line numbers correct
// via an explicit call depth. Unlike a long-running server, this package
// registers no signal handlers: a client library must not have import-time
// side effects that could surprise an embedding application.
package log

import (
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
)

var (
	stdLogFlags     = stdlog.LstdFlags | stdlog.Lshortfile | stdlog.LUTC
	outputCallDepth = 2

	DebugLogger = stdlog.New(os.Stderr, "DEBUG: ", stdLogFlags)
	InfoLogger  = stdlog.New(os.Stderr, "INFO: ", stdLogFlags)
	ErrorLogger = stdlog.New(os.Stderr, "ERROR: ", stdLogFlags)
	FatalLogger = stdlog.New(os.Stderr, "FATAL: ", stdlog.LstdFlags|stdlog.Llongfile|stdlog.LUTC)

	debug = flag.Bool("easyhttp.debug", false, "Whether to print debug messages from the easyhttp client")
)

// SetDebug toggles debug-level logging programmatically, for callers that
// don't want to go through the -easyhttp.debug flag.
func SetDebug(v bool) {
	*debug = v
}

// SuppressOutput silences (or restores to stderr) the Debug, Info and Error
// loggers; FatalLogger is left unchanged. Handy in tests that exercise
// error paths and don't want them printed.
func SuppressOutput(suppress bool) {
	var w io.Writer = os.Stderr
	if suppress {
		w = io.Discard
	}
	DebugLogger.SetOutput(w)
	InfoLogger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

func Debugf(format string, args ...interface{}) {
	if !*debug {
		return
	}
	s := fmt.Sprintf(format, args...)
	DebugLogger.Output(outputCallDepth, s)
}

func Infof(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	InfoLogger.Output(outputCallDepth, s)
}

func Errorf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	ErrorLogger.Output(outputCallDepth, s)
}

// ErrorWithCallDepth logs err at a caller-supplied depth, for wrappers that
// want the log line to point at their own caller rather than themselves.
func ErrorWithCallDepth(err error, depth int) {
	ErrorLogger.Output(outputCallDepth+depth, err.Error())
}

func Fatalf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	FatalLogger.Output(outputCallDepth, s)
	os.Exit(1)
}
