// Package monitoring provides the process-wide diagnostic logger shared by
// the CLIs and the server, with a verbosity gate for per-request chatter.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger; tests or embedding code can redirect or mute
// it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose bool

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose toggles per-request diagnostics. Off by default so production
// logs carry only startup lines and rejections.
func SetVerbose(v bool) {
	verbose = v
}

// Debugf logs through Logf only when verbose mode is on.
func Debugf(format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}
