// Package logger provides the zerolog constructor shared by the server and
// its background workers. Output is JSON on stdout with a role label so
// entries from different components can be filtered apart.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New constructs a logger for the given role label (e.g. "server",
// "audit-consumer"). Every entry carries a timestamp and the role field.
func New(role string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Str("role", role).
		Timestamp().
		Logger()
}
