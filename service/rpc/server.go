package rpc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/claim-faucet/service/httputil"
)

// Server wraps an httputil.HTTPServer and serves an RPC Handler with it.
type Server struct {
	httpServer *httputil.HTTPServer

	// embedded, for easy access as caller
	*Handler
}

// Endpoint returns the HTTP endpoint without http / ws protocol prefix.
func (b *Server) Endpoint() string {
	return b.httpServer.Addr().String()
}

func (b *Server) Start() error {
	if err := b.httpServer.Start(); err != nil {
		return err
	}
	b.log.Info("Started RPC server", "endpoint", b.httpServer.HTTPEndpoint())
	return nil
}

func (b *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = b.httpServer.Shutdown(ctx)
	b.Handler.Stop()
	b.log.Info("Stopped RPC server")
	return nil
}

func (b *Server) AddAPI(api rpc.API) {
	if err := b.Handler.AddAPI(api); err != nil {
		panic(fmt.Errorf("invalid API: %w", err))
	}
}

func NewServer(host string, port int, appVersion string, opts ...Option) *Server {
	endpoint := net.JoinHostPort(host, strconv.Itoa(port))
	h := NewHandler(appVersion, opts...)
	return &Server{httpServer: httputil.NewHTTPServer(endpoint, h), Handler: h}
}
