package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/logger"
	"github.com/listenupapp/marginalia/internal/relay"
)

// HTTPServerHandle wraps the relay's http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	relay *relay.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.relay.Close()
	return h.Server.Shutdown(ctx)
}

// ProvideRelayServer provides the relay HTTP server and starts listening.
func ProvideRelayServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	handler := relay.NewServer(storeHandle.Backend, relay.Config{
		TTL:            cfg.Relay.TTL,
		MaxPayload:     cfg.Relay.MaxPayload,
		RateLimit:      cfg.Relay.RateLimit,
		RateBurst:      cfg.Relay.RateBurst,
		AllowedOrigins: cfg.Relay.AllowedOrigins,
	}, clk, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Relay.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Relay.ReadTimeout,
		WriteTimeout: cfg.Relay.WriteTimeout,
	}

	// Start in background
	go func() {
		log.Info("Relay server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Relay server error", "error", err)
		}
	}()

	log.Info("Relay running",
		"addr", srv.Addr,
		"backend", storeHandle.Kind,
		"ttl", cfg.Relay.TTL,
		"max_payload", cfg.Relay.MaxPayload,
	)

	return &HTTPServerHandle{Server: srv, relay: handler}, nil
}
