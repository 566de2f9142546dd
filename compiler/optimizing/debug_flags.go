package optimizing

import (
	"os"

	"golang.org/x/exp/slog"
)

// Package-wide debug switch for verbose logging in the graph build stack.
// Default is off to keep logs clean unless explicitly enabled by tests or callers.
var (
	// DebugLogsEnabled toggles all graph-build debug logs.
	DebugLogsEnabled = false
)

func init() {
	if os.Getenv("HGRAPH_DEBUG") == "1" || os.Getenv("HGRAPH_DEBUG") == "true" {
		DebugLogsEnabled = true
	}
}

// EnableGraphDebugLogs toggles all graph-build debug logs.
// This is the single public entrypoint for enabling verbose build logging.
func EnableGraphDebugLogs(on bool) { DebugLogsEnabled = on }

func shouldLog() bool { return DebugLogsEnabled }

// DebugWarn emits a warning only if debug logging is enabled.
func DebugWarn(msg string, ctx ...any) {
	if shouldLog() {
		slog.Warn(msg, ctx...)
	}
}

// DebugInfo emits info only if debug logging is enabled.
func DebugInfo(msg string, ctx ...any) {
	if shouldLog() {
		slog.Info(msg, ctx...)
	}
}

// DebugError emits an error only if debug logging is enabled.
func DebugError(msg string, ctx ...any) {
	if shouldLog() {
		slog.Error(msg, ctx...)
	}
}

// assertUnreachable flags a broken internal invariant. Fatal when debug
// logging is on so tests catch the defect; in production the caller
// recovers through a failure result instead.
func assertUnreachable(msg string) {
	if DebugLogsEnabled {
		panic("optimizing: " + msg)
	}
	slog.Warn("internal invariant violated", "what", msg)
}
