package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"

	oplog "github.com/mantlenetworkio/claim-faucet/service/log"
)

// rootRoute is served on "/", routes are registered without the leading "/" of the mux pattern.
const rootRoute = ""

var wildcardHosts = []string{"*"}

// Handler serves JSON-RPC servers on named routes, the root route included.
// Every route has its own namespaces, health endpoint, websocket endpoint if enabled,
// and authentication setting.
type Handler struct {
	appVersion string
	corsHosts  []string
	vHosts     []string
	jwtSecret  []byte
	wsEnabled  bool

	// routes only require the JWT secret if they opt in
	publicByDefault bool

	log         log.Logger
	middlewares []Middleware

	routesLock sync.Mutex
	routes     map[string]*rpc.Server

	mux *http.ServeMux
	// mux wrapped with request logging
	outer http.Handler
}

func NewHandler(appVersion string, opts ...Option) *Handler {
	h := &Handler{
		appVersion: appVersion,
		corsHosts:  wildcardHosts,
		vHosts:     wildcardHosts,
		log:        log.Root(),
		mux:        new(http.ServeMux),
		routes:     make(map[string]*rpc.Server),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.outer = oplog.NewLoggingMiddleware(h.log, h.mux)
	if err := h.AddRPC(rootRoute); err != nil {
		panic(fmt.Errorf("failed to register root RPC server: %w", err))
	}
	return h
}

var _ http.Handler = (*Handler)(nil)

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.outer.ServeHTTP(writer, request)
}

// AddAPI adds a backend to the given RPC namespace, on the root RPC route.
func (h *Handler) AddAPI(api rpc.API) error {
	return h.AddAPIToRPC(rootRoute, api)
}

// AddAPIToRPC adds a backend to the given RPC namespace, on the RPC of the given route.
func (h *Handler) AddAPIToRPC(route string, api rpc.API) error {
	h.routesLock.Lock()
	defer h.routesLock.Unlock()
	server, ok := h.routes[route]
	if !ok {
		return fmt.Errorf("route %q not found", route)
	}
	if err := server.RegisterName(api.Namespace, api.Service); err != nil {
		return fmt.Errorf("failed to register API namespace %s on route %q: %w", api.Namespace, route, err)
	}
	h.log.Info("Registered API", "route", route, "namespace", api.Namespace)
	return nil
}

// AddRPC creates an RPC server at the given route, with the default authentication.
// The route must not have a "/" suffix.
func (h *Handler) AddRPC(route string) error {
	return h.AddRPCWithAuthentication(route, nil)
}

// AddRPCWithAuthentication creates an RPC server at the given route.
// The route serves a health endpoint, JSON-RPC over HTTP, and websocket JSON-RPC if enabled.
// See authSecret for the meaning of isAuthenticated.
func (h *Handler) AddRPCWithAuthentication(route string, isAuthenticated *bool) error {
	h.routesLock.Lock()
	defer h.routesLock.Unlock()
	if strings.HasSuffix(route, "/") {
		return fmt.Errorf("routes must not have a / suffix, got %q", route)
	}
	if _, ok := h.routes[route]; ok {
		return fmt.Errorf("route %q already exists", route)
	}

	srv := rpc.NewServer()
	if err := srv.RegisterName("health", &healthzAPI{appVersion: h.appVersion}); err != nil {
		return fmt.Errorf("failed to setup default health RPC namespace: %w", err)
	}
	handler := h.routeHandler(srv, h.authSecret(route, isAuthenticated))
	h.routes[route] = srv

	h.mux.Handle(route+"/", http.StripPrefix(route+"/", handler))
	if route != rootRoute {
		h.mux.Handle(route, http.StripPrefix(route, handler))
	}
	return nil
}

// authSecret returns the JWT secret a route is protected with, nil if public.
// A nil isAuthenticated applies the handler default:
// the configured secret, or none if the handler is public by default.
func (h *Handler) authSecret(route string, isAuthenticated *bool) []byte {
	switch {
	case isAuthenticated == nil && h.publicByDefault:
		return nil
	case isAuthenticated == nil:
		return h.jwtSecret
	case !*isAuthenticated:
		return nil
	}
	if len(h.jwtSecret) == 0 {
		h.log.Warn("Route requires authentication, but no JWT secret is configured", "route", route)
	}
	return h.jwtSecret
}

// routeHandler dispatches a request, with the route prefix stripped, to the RPC server.
// The health endpoint is served before any user middleware.
func (h *Handler) routeHandler(srv *rpc.Server, jwtSecret []byte) http.Handler {
	httpRPC := node.NewHTTPHandlerStack(srv, h.corsHosts, h.vHosts, jwtSecret)
	var wsRPC http.Handler
	if h.wsEnabled {
		wsRPC = node.NewWSHandlerStack(srv.WebsocketHandler(h.corsHosts), jwtSecret)
	}
	var rpcHandler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")
		switch {
		case wsRPC != nil && isWebsocket(r) && (path == "" || path == "ws"):
			wsRPC.ServeHTTP(w, r)
		case r.URL.Path == "":
			httpRPC.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	for _, middleware := range h.middlewares {
		rpcHandler = middleware(rpcHandler)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSuffix(r.URL.Path, "/") == "healthz" {
			h.serveHealthz(w)
			return
		}
		rpcHandler.ServeHTTP(w, r)
	})
}

func (h *Handler) Stop() {
	h.routesLock.Lock()
	defer h.routesLock.Unlock()
	for route, s := range h.routes {
		h.log.Debug("Stopping RPC", "route", route)
		s.Stop()
	}
}

type HealthzResponse struct {
	Version string `json:"version"`
}

func (h *Handler) serveHealthz(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&HealthzResponse{Version: h.appVersion})
}

type healthzAPI struct {
	appVersion string
}

func (api *healthzAPI) Status() string {
	return api.appVersion
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
