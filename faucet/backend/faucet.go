package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mantlenetworkio/claim-faucet/faucet/backend/config"
	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/faucet/frontend"
	"github.com/mantlenetworkio/claim-faucet/faucet/ledger"
	"github.com/mantlenetworkio/claim-faucet/faucet/notify"
	"github.com/mantlenetworkio/claim-faucet/faucet/store"
	"github.com/mantlenetworkio/claim-faucet/metrics"
	"github.com/mantlenetworkio/claim-faucet/service/clock"
	"github.com/mantlenetworkio/claim-faucet/service/locks"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

// maxRateLimitedPeers bounds the number of peers with a tracked rate limit.
// A peer that was evicted starts over with a full burst.
const maxRateLimitedPeers = 10_000

// FaucetParams are the construction-time settings of a Faucet.
// They cannot be changed after construction.
type FaucetParams struct {
	ClaimAmount tokens.Amount
	// ClaimInterval is the cooldown between two claims by the same identity, in seconds.
	ClaimInterval uint64
	Owner         common.Address

	Ledger ledger.Ledger
	Claims store.ClaimStore
	// Authorizer defaults to authorizing only Owner.
	Authorizer ftypes.Authorizer
	// Journal defaults to a new empty journal.
	Journal *notify.Journal
	// Clock defaults to the system clock.
	Clock clock.Clock

	// RateLimit is the sustained number of claims per second per RPC peer. Zero disables rate-limiting.
	RateLimit rate.Limit
	RateBurst int
}

func (p *FaucetParams) Check() error {
	var result error
	if p.ClaimAmount.IsZero() {
		result = errors.Join(result, errors.New("claim amount must be positive"))
	}
	if p.ClaimInterval == 0 {
		result = errors.Join(result, errors.New("claim interval must be positive"))
	}
	if p.Ledger == nil {
		result = errors.Join(result, errors.New("missing ledger"))
	}
	if p.Claims == nil {
		result = errors.Join(result, errors.New("missing claim store"))
	}
	if p.RateLimit > 0 && p.RateBurst <= 0 {
		result = errors.Join(result, errors.New("rate limit needs a positive burst"))
	}
	return result
}

// Faucet pays out a fixed claim amount to each identity, at most once per claim interval,
// and lets the owner drain the remaining funds.
type Faucet struct {
	// mu is held for reading by claims, and for writing by drains and admin changes.
	mu sync.RWMutex

	log log.Logger
	m   metrics.Metricer

	id            ftypes.FaucetID
	claimAmount   tokens.Amount
	claimInterval uint64
	owner         common.Address

	ledger  ledger.Ledger
	claims  store.ClaimStore
	auth    ftypes.Authorizer
	journal *notify.Journal
	clock   clock.Clock

	// identityLocks serializes the claim check-and-update of each identity
	identityLocks locks.KeyedMutex[common.Address]

	rateLimit rate.Limit
	rateBurst int
	// limiters of the most recently seen peers
	limiters *lru.Cache[string, *rate.Limiter]

	// true when the faucet is disabled and may not serve any new claims
	disabled bool
}

var _ frontend.FaucetBackend = (*Faucet)(nil)

func FaucetFromConfig(ctx context.Context, logger log.Logger, m metrics.Metricer, fID ftypes.FaucetID, fCfg *config.FaucetEntry) (*Faucet, error) {
	logger = logger.New("faucet", fID)
	claims, err := fCfg.Store.Open(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open claim store: %w", err)
	}
	l, err := fCfg.Ledger.Open(ctx, logger, fID)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open ledger: %w", err), claims.Close())
	}
	params := &FaucetParams{
		ClaimAmount:   fCfg.ClaimAmount,
		ClaimInterval: uint64(fCfg.ClaimInterval / time.Second),
		Owner:         fCfg.Owner,
		Ledger:        l,
		Claims:        claims,
	}
	if rl := fCfg.RateLimit; rl != nil {
		params.RateLimit = rate.Limit(rl.PerSecond)
		params.RateBurst = rl.Burst
	}
	f, err := NewFaucet(logger, m, fID, params)
	if err != nil {
		l.Close()
		return nil, errors.Join(err, claims.Close())
	}
	return f, nil
}

func NewFaucet(logger log.Logger, m metrics.Metricer, fID ftypes.FaucetID, params *FaucetParams) (*Faucet, error) {
	if err := params.Check(); err != nil {
		return nil, fmt.Errorf("invalid faucet %q: %w", fID, err)
	}
	f := &Faucet{
		log:           logger,
		m:             m,
		id:            fID,
		claimAmount:   params.ClaimAmount,
		claimInterval: params.ClaimInterval,
		owner:         params.Owner,
		ledger:        params.Ledger,
		claims:        params.Claims,
		auth:          params.Authorizer,
		journal:       params.Journal,
		clock:         params.Clock,
		rateLimit:     params.RateLimit,
		rateBurst:     params.RateBurst,
	}
	if f.auth == nil {
		f.auth = ftypes.OwnerAuthorizer{Owner: params.Owner}
	}
	if f.journal == nil {
		f.journal = notify.NewJournal()
	}
	if f.clock == nil {
		f.clock = clock.SystemClock
	}
	if f.rateLimit > 0 {
		limiters, err := lru.New[string, *rate.Limiter](maxRateLimitedPeers)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiters: %w", err)
		}
		f.limiters = limiters
	}
	return f, nil
}

func (f *Faucet) Enable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.Info("Enabling faucet")
	f.disabled = false
}

func (f *Faucet) Disable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.Info("Disabling faucet")
	f.disabled = true
}

func (f *Faucet) Enabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.disabled
}

func (f *Faucet) Close() {
	f.log.Info("Closing faucet")
	f.Disable()
	f.ledger.Close()
	if err := f.claims.Close(); err != nil {
		f.log.Error("Failed to close claim store", "err", err)
	}
}

func (f *Faucet) ID() ftypes.FaucetID {
	return f.id
}

func (f *Faucet) ClaimAmount() tokens.Amount {
	return f.claimAmount
}

func (f *Faucet) ClaimInterval() uint64 {
	return f.claimInterval
}

func (f *Faucet) Owner() common.Address {
	return f.owner
}

func (f *Faucet) Account() common.Address {
	return f.ledger.Account()
}

func (f *Faucet) Info() ftypes.FaucetInfo {
	return ftypes.FaucetInfo{
		ID:            f.id,
		ClaimAmount:   f.claimAmount,
		ClaimInterval: f.claimInterval,
		Owner:         f.owner,
		Account:       f.ledger.Account(),
	}
}

func (f *Faucet) Balance(ctx context.Context) (tokens.Amount, error) {
	balance, err := f.ledger.BalanceOf(ctx, f.ledger.Account())
	if err != nil {
		f.log.Error("Failed to get balance", "err", err)
		return tokens.Amount{}, err
	}
	f.m.RecordBalance(f.id, balance)
	return balance, nil
}

// LastClaimedAt waits for any in-progress claim by id, so an uncommitted claim is never observed.
func (f *Faucet) LastClaimedAt(id common.Address) (uint64, bool, error) {
	unlock := f.identityLocks.Lock(id)
	defer unlock()
	return f.claims.LastClaimedAt(id)
}

// NextClaimAt returns the earliest time id may claim again, or 0 if id may claim now.
// Like LastClaimedAt it waits for any in-progress claim by id.
func (f *Faucet) NextClaimAt(id common.Address) (uint64, error) {
	unlock := f.identityLocks.Lock(id)
	defer unlock()
	last, ok, err := f.claims.LastClaimedAt(id)
	if err != nil {
		return 0, err
	}
	if !ok || f.eligible(last, f.now()) {
		return 0, nil
	}
	return f.nextClaimAt(last), nil
}

func (f *Faucet) ClaimedEvents(from uint64, limit uint64) []ftypes.ClaimedEvent {
	return f.journal.Events(from, limit)
}

func (f *Faucet) ClaimedFeed() *event.FeedOf[ftypes.ClaimedEvent] {
	return f.journal.Feed()
}

func (f *Faucet) now() uint64 {
	t := f.clock.Now().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

// eligible checks if a claim at now is allowed, after a previous claim at last.
// A clock that moved back before the last claim is not eligible.
func (f *Faucet) eligible(last uint64, now uint64) bool {
	return now >= last && now-last >= f.claimInterval
}

func (f *Faucet) nextClaimAt(last uint64) uint64 {
	if last > math.MaxUint64-f.claimInterval {
		return math.MaxUint64
	}
	return last + f.claimInterval
}

// allow applies the per-peer rate limit. Requests without peer info, i.e. in-process calls, are not limited.
func (f *Faucet) allow(peer *rpc.PeerInfo) bool {
	if f.rateLimit <= 0 || peer == nil || peer.RemoteAddr == "" {
		return true
	}
	key := peer.RemoteAddr
	if host, _, err := net.SplitHostPort(key); err == nil {
		key = host
	}
	limiter, ok := f.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(f.rateLimit, f.rateBurst)
		if prev, exists, _ := f.limiters.PeekOrAdd(key, limiter); exists {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// Claim pays out the claim amount to the requesting identity,
// if it did not claim within the last claim interval.
//
// The claim time is recorded before the ledger transfer,
// and restored to its previous state if the transfer fails.
func (f *Faucet) Claim(ctx context.Context, request *ftypes.ClaimRequest) (ev *ftypes.ClaimedEvent, result error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	id := request.Identity
	logger := f.log.New("identity", id)
	if f.disabled {
		logger.Info("Cannot serve claim, faucet is disabled")
		return nil, ftypes.ErrFaucetDisabled
	}
	if !f.allow(request.RpcUser) {
		logger.Warn("Rate-limited claim", "peer", request.RpcUser.RemoteAddr)
		return nil, ftypes.ErrRateLimited
	}

	onDone := f.m.RecordClaim(f.id, f.claimAmount)
	defer func() {
		onDone(result)
	}()

	unlock := f.identityLocks.Lock(id)
	defer unlock()

	now := f.now()
	last, claimed, err := f.claims.LastClaimedAt(id)
	if err != nil {
		logger.Error("Failed to read last claim", "err", err)
		return nil, fmt.Errorf("failed to read last claim: %w", err)
	}
	if claimed && !f.eligible(last, now) {
		logger.Debug("Claim is cooling down", "last", last, "now", now)
		return nil, &ftypes.AlreadyClaimedError{
			Identity:      id,
			LastClaimedAt: last,
			NextClaimAt:   f.nextClaimAt(last),
		}
	}

	if err := f.claims.SetLastClaimedAt(id, now); err != nil {
		logger.Error("Failed to record claim", "err", err)
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}
	if err := f.ledger.Transfer(ctx, id, f.claimAmount); errors.Is(err, ftypes.ErrTransferPending) {
		// The claim may be paid out, so it keeps counting towards the cooldown.
		logger.Warn("Claim transfer is pending, keeping claim record", "err", err)
		return nil, fmt.Errorf("claim transfer pending: %w", err)
	} else if err != nil {
		logger.Warn("Claim transfer failed, reverting claim record", "err", err)
		err = fmt.Errorf("failed to transfer claim: %w", err)
		if rerr := f.restoreClaim(id, last, claimed); rerr != nil {
			logger.Error("Failed to revert claim record", "err", rerr)
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}

	out := f.journal.NotifyClaimed(ftypes.ClaimedEvent{
		Faucet:    f.id,
		Identity:  id,
		Amount:    f.claimAmount,
		Timestamp: now,
	})
	logger.Info("Claimed", "amount", f.claimAmount, "time", now, "index", out.Index)
	return &out, nil
}

func (f *Faucet) restoreClaim(id common.Address, last uint64, claimed bool) error {
	if !claimed {
		return f.claims.Forget(id)
	}
	return f.claims.SetLastClaimedAt(id, last)
}

// Drain moves the full faucet balance to the owner.
// Draining an empty faucet is a no-op, and transfers nothing.
// Drains are allowed when the faucet is disabled.
func (f *Faucet) Drain(ctx context.Context, request *ftypes.DrainRequest) (amount tokens.Amount, result error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	defer func() {
		f.m.RecordDrain(f.id, amount, result)
	}()

	logger := f.log.New("caller", request.Caller)
	if !f.auth.IsOwner(request.Caller) {
		logger.Warn("Unauthorized drain attempt")
		return tokens.Amount{}, &ftypes.UnauthorizedError{Caller: request.Caller}
	}

	balance, err := f.ledger.BalanceOf(ctx, f.ledger.Account())
	if err != nil {
		logger.Error("Failed to get balance", "err", err)
		return tokens.Amount{}, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.IsZero() {
		logger.Info("Faucet is already empty, nothing to drain")
		return tokens.Amount{}, nil
	}
	if err := f.ledger.Transfer(ctx, f.owner, balance); err != nil {
		logger.Error("Failed to drain faucet", "err", err)
		return tokens.Amount{}, fmt.Errorf("failed to transfer drain: %w", err)
	}
	f.m.RecordBalance(f.id, tokens.Zero)
	logger.Info("Drained faucet", "amount", balance, "owner", f.owner)
	return balance, nil
}
