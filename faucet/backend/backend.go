package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/claim-faucet/faucet/backend/config"
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/faucet/frontend"
	"github.com/mantlenetworkio/claim-faucet/metrics"
	"github.com/mantlenetworkio/claim-faucet/service/locks"
)

var ErrUnknownFaucet = errors.New("unknown faucet")

type APIRouter interface {
	AddRPC(route string) error
	AddAPIToRPC(route string, api rpc.API) error
}

type Backend struct {
	log       log.Logger
	m         metrics.Metricer
	faucets   locks.RWMap[ftypes.FaucetID, *Faucet]
	defaultID ftypes.FaucetID
}

func FromConfig(ctx context.Context, log log.Logger, m metrics.Metricer, cfg *config.Config, router APIRouter) (*Backend, error) {
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid faucets config: %w", err)
	}
	b := &Backend{
		log: log,
		m:   m,
	}
	// Faucets are opened concurrently, since ledgers may need to dial a remote endpoint.
	var g errgroup.Group
	for fID, fCfg := range cfg.Faucets {
		g.Go(func() error {
			f, err := FaucetFromConfig(ctx, log, m, fID, fCfg)
			if err != nil {
				return fmt.Errorf("failed to setup faucet %q: %w", fID, err)
			}
			b.faucets.Set(fID, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Join(err, b.Stop(ctx))
	}
	if err := b.setupRoutes(cfg.Default, router); err != nil {
		return nil, errors.Join(err, b.Stop(ctx))
	}
	return b, nil
}

// FromFaucets creates a backend serving already constructed faucets.
func FromFaucets(log log.Logger, m metrics.Metricer, faucets []*Faucet, defaultID ftypes.FaucetID, router APIRouter) (*Backend, error) {
	b := &Backend{
		log: log,
		m:   m,
	}
	for _, f := range faucets {
		if !b.faucets.SetIfMissing(f.ID(), f) {
			return nil, fmt.Errorf("duplicate faucet %q", f.ID())
		}
	}
	if err := b.setupRoutes(defaultID, router); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) setupRoutes(defaultID ftypes.FaucetID, router APIRouter) error {
	if b.faucets.Len() == 0 {
		return errors.New("no faucets")
	}
	if defaultID == "" {
		// Always use the lowest faucet ID, so map-iteration doesn't affect the default.
		ids := b.faucets.Keys()
		sort.Slice(ids, func(i, j int) bool {
			return ids[i] < ids[j]
		})
		defaultID = ids[0]
	}
	if !b.faucets.Has(defaultID) {
		return fmt.Errorf("%w, cannot set as default: %q", ErrUnknownFaucet, defaultID)
	}
	b.defaultID = defaultID

	// Set up the faucet routes
	var faucetErr error
	b.faucets.Range(func(id ftypes.FaucetID, f *Faucet) bool {
		route := "/faucet/" + id.String()
		if err := router.AddRPC(route); err != nil {
			faucetErr = errors.Join(faucetErr, fmt.Errorf("failed to setup faucet route for %q: %w", id, err))
			return true
		}
		if err := router.AddAPIToRPC(route, b.faucetAPI(f)); err != nil {
			faucetErr = errors.Join(faucetErr,
				fmt.Errorf("failed to setup faucet RPC for %q: %w", id, err))
		}
		return true
	})
	if faucetErr != nil {
		return fmt.Errorf("failed to set up faucet route(s): %w", faucetErr)
	}

	// The default faucet is also served on the root route
	f, _ := b.faucets.Get(defaultID)
	if err := router.AddAPIToRPC("", b.faucetAPI(f)); err != nil {
		return fmt.Errorf("failed to set up default faucet %q: %w", defaultID, err)
	}
	b.log.Info("Serving default faucet", "faucet", defaultID)
	return nil
}

func (b *Backend) faucetAPI(f *Faucet) rpc.API {
	return rpc.API{
		Namespace: "faucet",
		Service:   frontend.NewFaucetFrontend(f.log, f),
	}
}

// FaucetByID gets the faucet by its identifier.
// This returns nil if there is no such faucet configured.
func (b *Backend) FaucetByID(id ftypes.FaucetID) *Faucet {
	out, _ := b.faucets.Get(id)
	return out
}

// DefaultFaucet gets the faucet that is served on the root route.
func (b *Backend) DefaultFaucet() *Faucet {
	return b.FaucetByID(b.defaultID)
}

func (b *Backend) Default() ftypes.FaucetID {
	return b.defaultID
}

func (b *Backend) EnableFaucet(id ftypes.FaucetID) error {
	f, ok := b.faucets.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFaucet, id)
	}
	f.Enable()
	return nil
}

func (b *Backend) DisableFaucet(id ftypes.FaucetID) error {
	f, ok := b.faucets.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFaucet, id)
	}
	f.Disable()
	return nil
}

func (b *Backend) Stop(ctx context.Context) error {
	// Claims in flight hold the faucet read-lock; Close waits for them via Disable.
	b.faucets.Range(func(key ftypes.FaucetID, value *Faucet) bool {
		value.Close()
		return true
	})
	return nil
}

func (b *Backend) Faucets() (out map[ftypes.FaucetID]ftypes.FaucetStatus) {
	out = make(map[ftypes.FaucetID]ftypes.FaucetStatus)
	b.faucets.Range(func(key ftypes.FaucetID, value *Faucet) bool {
		out[key] = ftypes.FaucetStatus{
			Info:    value.Info(),
			Enabled: value.Enabled(),
		}
		return true
	})
	return out
}
