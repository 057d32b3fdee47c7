package faucet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/claim-faucet/config"
	"github.com/mantlenetworkio/claim-faucet/faucet/backend"
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/faucet/frontend"
	"github.com/mantlenetworkio/claim-faucet/metrics"
	"github.com/mantlenetworkio/claim-faucet/service/cliapp"
	"github.com/mantlenetworkio/claim-faucet/service/httputil"
	opmetrics "github.com/mantlenetworkio/claim-faucet/service/metrics"
	oprpc "github.com/mantlenetworkio/claim-faucet/service/rpc"
)

const adminRoute = "/admin"

type serviceBackend interface {
	frontend.AdminBackend
	Stop(ctx context.Context) error
}

var _ serviceBackend = (*backend.Backend)(nil)

type Service struct {
	closing atomic.Bool

	log log.Logger

	backend serviceBackend

	metrics    metrics.Metricer
	metricsSrv *httputil.HTTPServer
	rpcHandler *oprpc.Handler
	httpServer *httputil.HTTPServer
}

var _ cliapp.Lifecycle = (*Service)(nil)

// FromConfig sets up the metrics server, the RPC routes of all configured faucets,
// and the admin API if enabled. The RPC server is not serving until Start.
func FromConfig(ctx context.Context, cfg *config.Config, logger log.Logger) (*Service, error) {
	s := &Service{log: logger}
	if err := s.init(ctx, cfg); err != nil {
		return nil, errors.Join(err, s.Stop(ctx))
	}
	return s, nil
}

func (s *Service) init(ctx context.Context, cfg *config.Config) error {
	s.initMetrics(cfg)
	if err := s.initMetricsServer(cfg); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	if err := s.initRPCHandler(cfg); err != nil {
		return fmt.Errorf("RPC handler: %w", err)
	}
	if err := s.initBackend(ctx, cfg); err != nil {
		return fmt.Errorf("faucets backend: %w", err)
	}
	if err := s.initAdminAPI(cfg); err != nil {
		return fmt.Errorf("admin API: %w", err)
	}
	endpoint := net.JoinHostPort(cfg.RPC.ListenAddr, strconv.Itoa(cfg.RPC.ListenPort))
	s.httpServer = httputil.NewHTTPServer(endpoint, s.rpcHandler)
	return nil
}

func (s *Service) initMetrics(cfg *config.Config) {
	if !cfg.MetricsConfig.Enabled {
		s.metrics = metrics.NoopMetrics{}
		return
	}
	s.metrics = metrics.NewMetrics("default")
	s.metrics.RecordInfo(cfg.Version)
}

func (s *Service) initMetricsServer(cfg *config.Config) error {
	if !cfg.MetricsConfig.Enabled {
		s.log.Info("Metrics server disabled")
		return nil
	}
	m, ok := s.metrics.(opmetrics.RegistryMetricer)
	if !ok {
		return fmt.Errorf("metricer %T has no registry to serve", s.metrics)
	}
	srv, err := opmetrics.StartServer(m.Registry(), cfg.MetricsConfig.ListenAddr, cfg.MetricsConfig.ListenPort)
	if err != nil {
		return err
	}
	s.log.Info("Serving metrics", "addr", srv.Addr())
	s.metricsSrv = srv
	return nil
}

func (s *Service) initRPCHandler(cfg *config.Config) error {
	opts := []oprpc.Option{
		oprpc.WithLogger(s.log),
		oprpc.WithWebsocketEnabled(),
		oprpc.WithPublicByDefault(),
	}
	if cfg.RPC.EnableAdmin && cfg.RPC.JWTSecretPath != "" {
		secret, err := oprpc.ObtainJWTSecret(s.log, cfg.RPC.JWTSecretPath, true)
		if err != nil {
			return fmt.Errorf("failed to obtain JWT secret: %w", err)
		}
		opts = append(opts, oprpc.WithJWTSecret(secret[:]))
	}
	s.rpcHandler = oprpc.NewHandler(cfg.Version, opts...)
	return nil
}

func (s *Service) initBackend(ctx context.Context, cfg *config.Config) error {
	faucetsCfg, err := cfg.Faucets.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load faucets config: %w", err)
	}
	b, err := backend.FromConfig(ctx, s.log, s.metrics, faucetsCfg, s.rpcHandler)
	if err != nil {
		return fmt.Errorf("failed to setup backend: %w", err)
	}
	s.backend = b
	return nil
}

func (s *Service) initAdminAPI(cfg *config.Config) error {
	if !cfg.RPC.EnableAdmin {
		return nil
	}
	if cfg.RPC.JWTSecretPath == "" {
		s.log.Warn("Admin RPC is enabled without JWT secret, it is served unauthenticated")
	}
	authenticated := true
	if err := s.rpcHandler.AddRPCWithAuthentication(adminRoute, &authenticated); err != nil {
		return err
	}
	if err := s.rpcHandler.AddAPIToRPC(adminRoute, rpc.API{
		Namespace: "admin",
		Service:   frontend.NewAdminFrontend(oprpc.NewCommonAdminAPI(s.log), s.backend),
	}); err != nil {
		return fmt.Errorf("failed to add admin API: %w", err)
	}
	s.log.Info("Admin RPC enabled", "route", adminRoute)
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to serve RPC: %w", err)
	}
	s.metrics.RecordUp()
	s.log.Info("Serving faucets", "endpoint", s.httpServer.HTTPEndpoint(), "default", s.backend.Default())
	return nil
}

// Stop closes the RPC server first, so no claim or drain is in flight
// when the faucet ledgers and claim stores are closed.
func (s *Service) Stop(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		s.log.Warn("Service is already stopping")
		return nil
	}
	var result error
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop RPC server: %w", err))
		}
	}
	if s.rpcHandler != nil {
		s.rpcHandler.Stop()
	}
	if s.backend != nil {
		if err := s.backend.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop faucets: %w", err))
		}
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	s.log.Info("Faucet service stopped", "err", result)
	return result
}

func (s *Service) Stopped() bool {
	return s.closing.Load()
}

func (s *Service) RPC() string {
	return s.httpServer.HTTPEndpoint()
}

func (s *Service) FaucetEndpoint(id ftypes.FaucetID) string {
	return fmt.Sprintf("%s/faucet/%s", s.RPC(), id)
}

func (s *Service) AdminEndpoint() string {
	return s.RPC() + adminRoute
}

func (s *Service) Faucets() map[ftypes.FaucetID]ftypes.FaucetStatus {
	return s.backend.Faucets()
}

func (s *Service) DefaultFaucet() ftypes.FaucetID {
	return s.backend.Default()
}
