package frontend

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	oprpc "github.com/mantlenetworkio/claim-faucet/service/rpc"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

type FaucetBackend interface {
	ID() ftypes.FaucetID
	Info() ftypes.FaucetInfo
	Claim(ctx context.Context, request *ftypes.ClaimRequest) (*ftypes.ClaimedEvent, error)
	Drain(ctx context.Context, request *ftypes.DrainRequest) (tokens.Amount, error)
	Balance(ctx context.Context) (tokens.Amount, error)
	LastClaimedAt(id common.Address) (ts uint64, ok bool, err error)
	NextClaimAt(id common.Address) (uint64, error)
	ClaimedEvents(from uint64, limit uint64) []ftypes.ClaimedEvent
	ClaimedFeed() *event.FeedOf[ftypes.ClaimedEvent]
}

// FaucetFrontend serves the "faucet" RPC namespace of a single faucet.
// Claim and drain calls must be signed by the identity they act for.
type FaucetFrontend struct {
	log log.Logger
	b   FaucetBackend
}

func NewFaucetFrontend(logger log.Logger, b FaucetBackend) *FaucetFrontend {
	return &FaucetFrontend{log: logger, b: b}
}

func (f *FaucetFrontend) FaucetID(ctx context.Context) (ftypes.FaucetID, error) {
	return f.b.ID(), nil
}

func (f *FaucetFrontend) Info(ctx context.Context) (ftypes.FaucetInfo, error) {
	return f.b.Info(), nil
}

// Claim pays out the claim amount to identity.
// The signature is a personal-sign signature by identity over the claim message.
func (f *FaucetFrontend) Claim(ctx context.Context, identity common.Address, signature hexutil.Bytes) (*ftypes.ClaimedEvent, error) {
	if err := ftypes.VerifySignature(ftypes.ClaimMessage(f.b.ID(), identity), signature, identity); err != nil {
		return nil, ftypes.RPCError(err)
	}
	info := rpc.PeerInfoFromContext(ctx)
	ev, err := f.b.Claim(ctx, &ftypes.ClaimRequest{
		RpcUser:  &info,
		Identity: identity,
	})
	if err != nil {
		return nil, ftypes.RPCError(err)
	}
	return ev, nil
}

// Drain moves all faucet funds to the owner, and returns the drained amount.
// The signature is a personal-sign signature by caller over the drain message.
func (f *FaucetFrontend) Drain(ctx context.Context, caller common.Address, signature hexutil.Bytes) (tokens.Amount, error) {
	if err := ftypes.VerifySignature(ftypes.DrainMessage(f.b.ID(), caller), signature, caller); err != nil {
		return tokens.Amount{}, ftypes.RPCError(err)
	}
	info := rpc.PeerInfoFromContext(ctx)
	amount, err := f.b.Drain(ctx, &ftypes.DrainRequest{
		RpcUser: &info,
		Caller:  caller,
	})
	if err != nil {
		return tokens.Amount{}, ftypes.RPCError(err)
	}
	return amount, nil
}

func (f *FaucetFrontend) Balance(ctx context.Context) (tokens.Amount, error) {
	balance, err := f.b.Balance(ctx)
	if err != nil {
		return tokens.Amount{}, ftypes.RPCError(err)
	}
	return balance, nil
}

// LastClaimedAt returns nil if identity never claimed.
func (f *FaucetFrontend) LastClaimedAt(ctx context.Context, identity common.Address) (*hexutil.Uint64, error) {
	ts, ok, err := f.b.LastClaimedAt(identity)
	if err != nil {
		return nil, ftypes.RPCError(err)
	}
	if !ok {
		return nil, nil
	}
	return (*hexutil.Uint64)(&ts), nil
}

// NextClaimAt returns 0 if identity is eligible to claim now.
func (f *FaucetFrontend) NextClaimAt(ctx context.Context, identity common.Address) (hexutil.Uint64, error) {
	ts, err := f.b.NextClaimAt(identity)
	if err != nil {
		return 0, ftypes.RPCError(err)
	}
	return hexutil.Uint64(ts), nil
}

func (f *FaucetFrontend) ClaimedEvents(ctx context.Context, from hexutil.Uint64, limit hexutil.Uint64) ([]ftypes.ClaimedEvent, error) {
	return f.b.ClaimedEvents(uint64(from), uint64(limit)), nil
}

// Claimed is the "claimed" subscription, following new claim events.
// If identity is set, only claims by that identity are streamed.
func (f *FaucetFrontend) Claimed(ctx context.Context, identity *common.Address) (*rpc.Subscription, error) {
	var keep func(ev ftypes.ClaimedEvent) bool
	if identity != nil {
		id := *identity
		keep = func(ev ftypes.ClaimedEvent) bool {
			return ev.Identity == id
		}
	}
	return oprpc.StreamFeed(ctx, f.log, f.b.ClaimedFeed(), keep)
}
