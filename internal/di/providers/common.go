// Package providers contains the dependency injection providers for DiVino.
package providers

import "time"

const (
	// shutdownTimeout bounds the graceful shutdown of each service.
	shutdownTimeout = 10 * time.Second

	// loadTimeout bounds reading persisted state at startup.
	loadTimeout = 5 * time.Second
)
