// Package logging builds a structured logger on top of go.uber.org/zap.
// cmd/server does not import it; the composition root calls zap's
// constructors directly.
package logging

import "go.uber.org/zap"

// New builds a production logger: JSON output, info level, a caller
// annotation on every entry, and stacktraces for error level and above.
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewDevelopment builds a human-readable console logger for local runs.
func NewDevelopment() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
