package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second
)

// Version is recorded in backup manifests. Release builds set it with
// -ldflags "-X github.com/listenupapp/marginalia/internal/di/providers.Version=...".
var Version = "dev"
