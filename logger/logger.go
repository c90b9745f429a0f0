// ABOUTME: Configured zerolog logger for the assistant's components
// ABOUTME: JSON to stdout with a service field, timestamps and pkg/errors stacks
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// New returns a new zerolog.Logger configured for the application.
func New(serviceName string) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, serviceName string) zerolog.Logger {
	return zerolog.New(w).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// SetLevel sets the global level from a name such as "debug" or "warn".
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	if lvl, err := zerolog.ParseLevel(name); err == nil && name != "" {
		zerolog.SetGlobalLevel(lvl)
	}
}
