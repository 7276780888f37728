package voxel

import (
	"io"
	"log"
)

var debugLogger *log.Logger

// SetDebugLogger routes the package's diagnostic output to w. Pass nil to
// disable it (the default).
func SetDebugLogger(w io.Writer) {
	if w == nil {
		debugLogger = nil
		return
	}
	debugLogger = log.New(w, "[voxel] ", log.LstdFlags|log.Lmicroseconds)
}

func debugf(format string, args ...interface{}) {
	if debugLogger != nil {
		debugLogger.Printf(format, args...)
	}
}
