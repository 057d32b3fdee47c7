package sources

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

// FaucetClient is a typed client of the faucet RPC namespace.
// Errors with a known faucet error code wrap the matching faucet sentinel error.
type FaucetClient struct {
	rpc *rpc.Client
}

func NewFaucetClient(cl *rpc.Client) *FaucetClient {
	return &FaucetClient{rpc: cl}
}

func DialFaucet(ctx context.Context, endpoint string) (*FaucetClient, error) {
	cl, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial faucet RPC %q: %w", endpoint, err)
	}
	return NewFaucetClient(cl), nil
}

func (c *FaucetClient) Close() {
	c.rpc.Close()
}

func (c *FaucetClient) call(ctx context.Context, result any, method string, args ...any) error {
	return translateErr(c.rpc.CallContext(ctx, result, method, args...))
}

func translateErr(err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	if sentinel, ok := ftypes.ErrorFromCode(rpcErr.ErrorCode()); ok {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func (c *FaucetClient) FaucetID(ctx context.Context) (ftypes.FaucetID, error) {
	var out ftypes.FaucetID
	err := c.call(ctx, &out, "faucet_faucetID")
	return out, err
}

func (c *FaucetClient) Info(ctx context.Context) (ftypes.FaucetInfo, error) {
	var out ftypes.FaucetInfo
	err := c.call(ctx, &out, "faucet_info")
	return out, err
}

func (c *FaucetClient) Balance(ctx context.Context) (tokens.Amount, error) {
	var out tokens.Amount
	err := c.call(ctx, &out, "faucet_balance")
	return out, err
}

// Claim signs a claim for the identity of the key, and submits it.
func (c *FaucetClient) Claim(ctx context.Context, key *ecdsa.PrivateKey) (*ftypes.ClaimedEvent, error) {
	id, err := c.FaucetID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get faucet ID: %w", err)
	}
	identity := crypto.PubkeyToAddress(key.PublicKey)
	sig, err := ftypes.SignMessage(key, ftypes.ClaimMessage(id, identity))
	if err != nil {
		return nil, fmt.Errorf("failed to sign claim: %w", err)
	}
	return c.ClaimSigned(ctx, identity, sig)
}

func (c *FaucetClient) ClaimSigned(ctx context.Context, identity common.Address, sig []byte) (*ftypes.ClaimedEvent, error) {
	var out ftypes.ClaimedEvent
	if err := c.call(ctx, &out, "faucet_claim", identity, hexutil.Bytes(sig)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Drain signs a drain by the identity of the key, and submits it.
func (c *FaucetClient) Drain(ctx context.Context, key *ecdsa.PrivateKey) (tokens.Amount, error) {
	id, err := c.FaucetID(ctx)
	if err != nil {
		return tokens.Amount{}, fmt.Errorf("failed to get faucet ID: %w", err)
	}
	caller := crypto.PubkeyToAddress(key.PublicKey)
	sig, err := ftypes.SignMessage(key, ftypes.DrainMessage(id, caller))
	if err != nil {
		return tokens.Amount{}, fmt.Errorf("failed to sign drain: %w", err)
	}
	var out tokens.Amount
	err = c.call(ctx, &out, "faucet_drain", caller, hexutil.Bytes(sig))
	return out, err
}

// LastClaimedAt returns ok=false if identity never claimed.
func (c *FaucetClient) LastClaimedAt(ctx context.Context, identity common.Address) (ts uint64, ok bool, err error) {
	var out *hexutil.Uint64
	if err := c.call(ctx, &out, "faucet_lastClaimedAt", identity); err != nil {
		return 0, false, err
	}
	if out == nil {
		return 0, false, nil
	}
	return uint64(*out), true, nil
}

func (c *FaucetClient) NextClaimAt(ctx context.Context, identity common.Address) (uint64, error) {
	var out hexutil.Uint64
	err := c.call(ctx, &out, "faucet_nextClaimAt", identity)
	return uint64(out), err
}

func (c *FaucetClient) ClaimedEvents(ctx context.Context, from uint64, limit uint64) ([]ftypes.ClaimedEvent, error) {
	var out []ftypes.ClaimedEvent
	err := c.call(ctx, &out, "faucet_claimedEvents", hexutil.Uint64(from), hexutil.Uint64(limit))
	return out, err
}

// SubscribeClaimed follows new claim events. This requires a websocket connection.
func (c *FaucetClient) SubscribeClaimed(ctx context.Context, ch chan<- ftypes.ClaimedEvent) (ethereum.Subscription, error) {
	sub, err := c.rpc.Subscribe(ctx, "faucet", ch, "claimed")
	if err != nil {
		return nil, translateErr(err)
	}
	return sub, nil
}

// AdminClient is a typed client of the admin RPC namespace.
type AdminClient struct {
	rpc *rpc.Client
}

func NewAdminClient(cl *rpc.Client) *AdminClient {
	return &AdminClient{rpc: cl}
}

func (c *AdminClient) EnableFaucet(ctx context.Context, id ftypes.FaucetID) error {
	return c.rpc.CallContext(ctx, nil, "admin_enableFaucet", id)
}

func (c *AdminClient) DisableFaucet(ctx context.Context, id ftypes.FaucetID) error {
	return c.rpc.CallContext(ctx, nil, "admin_disableFaucet", id)
}

func (c *AdminClient) Faucets(ctx context.Context) (map[ftypes.FaucetID]ftypes.FaucetStatus, error) {
	var out map[ftypes.FaucetID]ftypes.FaucetStatus
	err := c.rpc.CallContext(ctx, &out, "admin_faucets")
	return out, err
}

func (c *AdminClient) DefaultFaucet(ctx context.Context) (ftypes.FaucetID, error) {
	var out ftypes.FaucetID
	err := c.rpc.CallContext(ctx, &out, "admin_defaultFaucet")
	return out, err
}

func (c *AdminClient) SetLogLevel(ctx context.Context, lvl string) error {
	return c.rpc.CallContext(ctx, nil, "admin_setLogLevel", lvl)
}
