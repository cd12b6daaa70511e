// Package monitoring carries the shared diagnostic logger for the
// prediction pipeline. Frame-level rejections (stale timestamps,
// identity mismatches, missing fields) are informational and flow
// through Logf rather than surfacing as errors to callers.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
