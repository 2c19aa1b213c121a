// Package observability wires up structured logging for the adapter layer.
// The core (queue, itch, moldudp64) never logs, and the ingress adapters
// return errors rather than logging; only cmd/feedhandler calls into this
// package.
package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger with a human-readable
// console writer and returns a component-scoped logger.
func InitLogger(component string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("component", component).Logger()
	log.Logger = logger
	return logger
}
