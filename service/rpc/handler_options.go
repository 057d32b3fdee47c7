package rpc

import (
	"net/http"

	"github.com/ethereum/go-ethereum/log"
)

type Option func(h *Handler)

type Middleware func(next http.Handler) http.Handler

func WithCORSHosts(hosts []string) Option {
	return func(h *Handler) {
		h.corsHosts = hosts
	}
}

func WithVHosts(hosts []string) Option {
	return func(h *Handler) {
		h.vHosts = hosts
	}
}

// WithWebsocketEnabled allows `ws://host:port/`, `ws://host:port/ws` and `ws://host:port/ws/`
// to be upgraded to a websocket JSON RPC connection.
func WithWebsocketEnabled() Option {
	return func(h *Handler) {
		h.wsEnabled = true
	}
}

// WithJWTSecret adds authentication to the RPCs (HTTP, and WS pre-upgrade if enabled).
// The health endpoint is still available without authentication.
func WithJWTSecret(secret []byte) Option {
	return func(h *Handler) {
		h.jwtSecret = secret
	}
}

// WithPublicByDefault keeps routes unauthenticated unless they explicitly require authentication,
// also when a JWT secret is configured.
func WithPublicByDefault() Option {
	return func(h *Handler) {
		h.publicByDefault = true
	}
}

func WithLogger(lgr log.Logger) Option {
	return func(h *Handler) {
		h.log = lgr
	}
}

// WithMiddleware adds an http.Handler to the rpc server handler stack,
// invoked directly before the RPC callback.
func WithMiddleware(middleware Middleware) Option {
	return func(h *Handler) {
		h.middlewares = append(h.middlewares, middleware)
	}
}
