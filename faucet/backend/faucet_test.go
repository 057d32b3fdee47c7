package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/faucet/ledger"
	"github.com/mantlenetworkio/claim-faucet/faucet/store"
	"github.com/mantlenetworkio/claim-faucet/metrics"
	"github.com/mantlenetworkio/claim-faucet/service/clock"
	"github.com/mantlenetworkio/claim-faucet/service/testlog"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

const day = 86400

var (
	faucetAcc = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	ownerO    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	identityA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	identityB = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	identityC = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type testFaucet struct {
	*Faucet
	ledger *ledger.Memory
	claims *store.Memory
	clock  *clock.DeterministicClock
}

func newTestFaucet(t *testing.T, funds uint64, mods ...func(p *FaucetParams)) *testFaucet {
	logger := testlog.Logger(t, log.LevelDebug)
	l := ledger.NewMemory(faucetAcc, tokens.FromUint64(funds))
	claims := store.NewMemory()
	cl := clock.NewDeterministicClock(time.Unix(0, 0))
	params := &FaucetParams{
		ClaimAmount:   tokens.FromUint64(1000),
		ClaimInterval: day,
		Owner:         ownerO,
		Ledger:        l,
		Claims:        claims,
		Clock:         cl,
	}
	for _, mod := range mods {
		mod(params)
	}
	f, err := NewFaucet(logger, metrics.NoopMetrics{}, "daily", params)
	require.NoError(t, err)
	return &testFaucet{Faucet: f, ledger: l, claims: claims, clock: cl}
}

func (tf *testFaucet) claim(id common.Address) (*ftypes.ClaimedEvent, error) {
	return tf.Claim(context.Background(), &ftypes.ClaimRequest{Identity: id})
}

func (tf *testFaucet) drain(caller common.Address) (tokens.Amount, error) {
	return tf.Drain(context.Background(), &ftypes.DrainRequest{Caller: caller})
}

func (tf *testFaucet) balanceOf(t *testing.T, id common.Address) uint64 {
	b, err := tf.ledger.BalanceOf(context.Background(), id)
	require.NoError(t, err)
	return b.ToU256().Uint64()
}

func (tf *testFaucet) lastClaimedAt(t *testing.T, id common.Address) (uint64, bool) {
	ts, ok, err := tf.LastClaimedAt(id)
	require.NoError(t, err)
	return ts, ok
}

func TestClaimCooldown(t *testing.T) {
	f := newTestFaucet(t, 1_000_000)

	ev, err := f.claim(identityA)
	require.NoError(t, err)
	require.Equal(t, ftypes.ClaimedEvent{
		Index:     0,
		Faucet:    "daily",
		Identity:  identityA,
		Amount:    tokens.FromUint64(1000),
		Timestamp: 0,
	}, *ev)
	require.Equal(t, uint64(1000), f.balanceOf(t, identityA))
	ts, ok := f.lastClaimedAt(t, identityA)
	require.True(t, ok)
	require.Equal(t, uint64(0), ts)

	f.clock.SetTime(time.Unix(100, 0))
	_, err = f.claim(identityA)
	var already *ftypes.AlreadyClaimedError
	require.ErrorAs(t, err, &already)
	require.ErrorIs(t, err, ftypes.ErrAlreadyClaimed)
	require.Equal(t, uint64(0), already.LastClaimedAt)
	require.Equal(t, uint64(day), already.NextClaimAt)
	require.Equal(t, uint64(1000), f.balanceOf(t, identityA), "no funds moved")
	next, err := f.NextClaimAt(identityA)
	require.NoError(t, err)
	require.Equal(t, uint64(day), next)

	// one second short of the interval
	f.clock.SetTime(time.Unix(day-1, 0))
	_, err = f.claim(identityA)
	require.ErrorIs(t, err, ftypes.ErrAlreadyClaimed)

	f.clock.SetTime(time.Unix(day, 0))
	next, err = f.NextClaimAt(identityA)
	require.NoError(t, err)
	require.Zero(t, next, "eligible now")
	ev, err = f.claim(identityA)
	require.NoError(t, err)
	require.Equal(t, uint64(1), ev.Index)
	require.Equal(t, uint64(2000), f.balanceOf(t, identityA))
	ts, _ = f.lastClaimedAt(t, identityA)
	require.Equal(t, uint64(day), ts)

	require.Equal(t, uint64(1_000_000-2000), f.balanceOf(t, faucetAcc))
	require.Len(t, f.ClaimedEvents(0, 10), 2)
}

func TestClaimIdentitiesAreIndependent(t *testing.T) {
	f := newTestFaucet(t, 1_000_000)
	_, err := f.claim(identityA)
	require.NoError(t, err)
	_, err = f.claim(identityB)
	require.NoError(t, err, "another identity is not affected by the cooldown of A")
	next, err := f.NextClaimAt(identityC)
	require.NoError(t, err)
	require.Zero(t, next)
	_, ok := f.lastClaimedAt(t, identityC)
	require.False(t, ok)
}

func TestClaimClockBackwards(t *testing.T) {
	f := newTestFaucet(t, 1_000_000)
	f.clock.SetTime(time.Unix(5*day, 0))
	_, err := f.claim(identityA)
	require.NoError(t, err)
	f.clock.SetTime(time.Unix(2*day, 0))
	_, err = f.claim(identityA)
	require.ErrorIs(t, err, ftypes.ErrAlreadyClaimed)
	ts, _ := f.lastClaimedAt(t, identityA)
	require.Equal(t, uint64(5*day), ts, "claim time never decreases")
}

func TestClaimInsufficientBalance(t *testing.T) {
	f := newTestFaucet(t, 500)
	_, err := f.claim(identityB)
	var insufficient *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	require.ErrorIs(t, err, ftypes.ErrInsufficientBalance)
	_, ok := f.lastClaimedAt(t, identityB)
	require.False(t, ok, "claim record must be rolled back to never-claimed")
	require.Zero(t, f.claims.Len())
	require.Equal(t, uint64(500), f.balanceOf(t, faucetAcc))
	require.Zero(t, f.balanceOf(t, identityB))
	require.Empty(t, f.ClaimedEvents(0, 10), "failed claims are not notified")

	t.Run("restores previous claim time", func(t *testing.T) {
		f.ledger.Credit(faucetAcc, tokens.FromUint64(500))
		_, err := f.claim(identityB)
		require.NoError(t, err)
		require.Zero(t, f.balanceOf(t, faucetAcc))

		f.clock.SetTime(time.Unix(3*day, 0))
		_, err = f.claim(identityB)
		require.ErrorIs(t, err, ftypes.ErrInsufficientBalance)
		ts, ok := f.lastClaimedAt(t, identityB)
		require.True(t, ok)
		require.Equal(t, uint64(0), ts)

		// funding the faucet allows the retry
		f.ledger.Credit(faucetAcc, tokens.FromUint64(1000))
		_, err = f.claim(identityB)
		require.NoError(t, err)
		ts, _ = f.lastClaimedAt(t, identityB)
		require.Equal(t, uint64(3*day), ts)
	})
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Account() common.Address {
	return faucetAcc
}

func (m *mockLedger) BalanceOf(ctx context.Context, account common.Address) (tokens.Amount, error) {
	args := m.Called(account)
	return args.Get(0).(tokens.Amount), args.Error(1)
}

func (m *mockLedger) Transfer(ctx context.Context, to common.Address, amount tokens.Amount) error {
	return m.Called(to, amount).Error(0)
}

func (m *mockLedger) Close() {
	m.Called()
}

func TestClaimTransferError(t *testing.T) {
	ml := new(mockLedger)
	f := newTestFaucet(t, 0, func(p *FaucetParams) {
		p.Ledger = ml
	})
	transferErr := errors.New("connection refused")
	ml.On("Transfer", identityA, tokens.FromUint64(1000)).Return(transferErr).Once()
	_, err := f.claim(identityA)
	require.ErrorIs(t, err, transferErr)
	_, ok := f.lastClaimedAt(t, identityA)
	require.False(t, ok)

	ml.On("Transfer", identityA, tokens.FromUint64(1000)).Return(nil).Once()
	_, err = f.claim(identityA)
	require.NoError(t, err, "no retry was made internally, the caller can retry")

	ml.On("Close").Once()
	f.Close()
	ml.AssertExpectations(t)
}

func TestClaimConservation(t *testing.T) {
	f := newTestFaucet(t, 1_000_000)
	const n = 7
	for i := 0; i < n; i++ {
		_, err := f.claim(identityA)
		require.NoError(t, err)
		_, err = f.claim(identityA)
		require.ErrorIs(t, err, ftypes.ErrAlreadyClaimed)
		f.clock.AdvanceTime(day * time.Second)
	}
	require.Equal(t, uint64(n*1000), f.balanceOf(t, identityA))
	require.Equal(t, uint64(1_000_000-n*1000), f.balanceOf(t, faucetAcc))
	events := f.ClaimedEvents(0, 100)
	require.Len(t, events, n)
	for i, ev := range events {
		require.Equal(t, uint64(i), ev.Index)
		require.Equal(t, uint64(i*day), ev.Timestamp)
	}
}

func TestClaimConcurrentSameIdentity(t *testing.T) {
	f := newTestFaucet(t, 1_000_000)
	var wg sync.WaitGroup
	var succeeded, already atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.claim(identityA)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ftypes.ErrAlreadyClaimed):
				already.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), succeeded.Load())
	require.Equal(t, int32(49), already.Load())
	require.Equal(t, uint64(1000), f.balanceOf(t, identityA))
}

func TestClaimConcurrentLimitedFunds(t *testing.T) {
	f := newTestFaucet(t, 10_000)
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 30; i++ {
		wg.Add(1)
		id := common.Address{byte(i + 1)}
		go func() {
			defer wg.Done()
			_, err := f.claim(id)
			if err == nil {
				succeeded.Add(1)
				return
			}
			if !errors.Is(err, ftypes.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
			if _, ok, _ := f.LastClaimedAt(id); ok {
				t.Errorf("failed claim of %s was recorded", id)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(10), succeeded.Load())
	require.Zero(t, f.balanceOf(t, faucetAcc))
	require.Equal(t, 10, f.claims.Len())
}

func TestDrain(t *testing.T) {
	t.Run("owner drains", func(t *testing.T) {
		f := newTestFaucet(t, 2300)
		amount, err := f.drain(ownerO)
		require.NoError(t, err)
		require.Equal(t, tokens.FromUint64(2300), amount)
		require.Zero(t, f.balanceOf(t, faucetAcc))
		require.Equal(t, uint64(2300), f.balanceOf(t, ownerO))

		t.Run("empty faucet is a no-op", func(t *testing.T) {
			amount, err := f.drain(ownerO)
			require.NoError(t, err)
			require.True(t, amount.IsZero())
			require.Equal(t, uint64(2300), f.balanceOf(t, ownerO))
		})
	})
	t.Run("non-owner is unauthorized", func(t *testing.T) {
		f := newTestFaucet(t, 2300)
		_, err := f.drain(identityC)
		var unauthorized *ftypes.UnauthorizedError
		require.ErrorAs(t, err, &unauthorized)
		require.ErrorIs(t, err, ftypes.ErrUnauthorized)
		require.Equal(t, identityC, unauthorized.Caller)
		require.Equal(t, uint64(2300), f.balanceOf(t, faucetAcc))
		require.Zero(t, f.balanceOf(t, identityC))
	})
	t.Run("custom authorizer", func(t *testing.T) {
		f := newTestFaucet(t, 100, func(p *FaucetParams) {
			p.Authorizer = ftypes.OwnerAuthorizer{Owner: identityC}
		})
		_, err := f.drain(ownerO)
		require.ErrorIs(t, err, ftypes.ErrUnauthorized)
		amount, err := f.drain(identityC)
		require.NoError(t, err)
		require.Equal(t, tokens.FromUint64(100), amount)
		require.Equal(t, uint64(100), f.balanceOf(t, ownerO), "funds go to the owner")
	})
	t.Run("drain while disabled", func(t *testing.T) {
		f := newTestFaucet(t, 100)
		f.Disable()
		amount, err := f.drain(ownerO)
		require.NoError(t, err)
		require.Equal(t, tokens.FromUint64(100), amount)
	})
	t.Run("claim after drain", func(t *testing.T) {
		f := newTestFaucet(t, 5000)
		_, err := f.drain(ownerO)
		require.NoError(t, err)
		_, err = f.claim(identityA)
		require.ErrorIs(t, err, ftypes.ErrInsufficientBalance)
		_, ok := f.lastClaimedAt(t, identityA)
		require.False(t, ok)
	})
}

func TestDrainConcurrentWithClaims(t *testing.T) {
	f := newTestFaucet(t, 100_000)
	var wg sync.WaitGroup
	var claimed atomic.Uint64
	var drained tokens.Amount
	for i := 0; i < 20; i++ {
		wg.Add(1)
		id := common.Address{byte(i + 1)}
		go func() {
			defer wg.Done()
			if _, err := f.claim(id); err == nil {
				claimed.Add(1000)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		amount, err := f.drain(ownerO)
		if err != nil {
			t.Errorf("drain failed: %v", err)
		}
		drained = amount
	}()
	wg.Wait()
	require.Zero(t, f.balanceOf(t, faucetAcc), "claims after the drain find an empty faucet")
	require.Equal(t, uint64(100_000), claimed.Load()+drained.ToU256().Uint64())
}

func TestFaucetDisabled(t *testing.T) {
	f := newTestFaucet(t, 10_000)
	require.True(t, f.Enabled())
	f.Disable()
	require.False(t, f.Enabled())
	_, err := f.claim(identityA)
	require.ErrorIs(t, err, ftypes.ErrFaucetDisabled)
	_, ok := f.lastClaimedAt(t, identityA)
	require.False(t, ok)
	f.Enable()
	_, err = f.claim(identityA)
	require.NoError(t, err)
}

func TestClaimRateLimit(t *testing.T) {
	f := newTestFaucet(t, 1_000_000, func(p *FaucetParams) {
		p.RateLimit = 0.001
		p.RateBurst = 2
	})
	peer := &rpc.PeerInfo{RemoteAddr: "10.0.0.1:4000"}
	claim := func(id common.Address, peer *rpc.PeerInfo) error {
		_, err := f.Claim(context.Background(), &ftypes.ClaimRequest{RpcUser: peer, Identity: id})
		return err
	}
	require.NoError(t, claim(identityA, peer))
	require.ErrorIs(t, claim(identityA, peer), ftypes.ErrAlreadyClaimed, "cooldown still consumes the budget")
	require.ErrorIs(t, claim(identityB, &rpc.PeerInfo{RemoteAddr: "10.0.0.1:4001"}), ftypes.ErrRateLimited,
		"peers are limited by host")
	_, ok := f.lastClaimedAt(t, identityB)
	require.False(t, ok)
	require.NoError(t, claim(identityB, &rpc.PeerInfo{RemoteAddr: "10.0.0.2:4000"}))
	require.NoError(t, claim(identityC, nil), "in-process calls are not limited")
}

func TestFaucetInfo(t *testing.T) {
	f := newTestFaucet(t, 4321)
	require.Equal(t, ftypes.FaucetID("daily"), f.ID())
	require.Equal(t, ownerO, f.Owner())
	require.Equal(t, faucetAcc, f.Account())
	require.Equal(t, tokens.FromUint64(1000), f.ClaimAmount())
	require.Equal(t, uint64(day), f.ClaimInterval())
	require.Equal(t, ftypes.FaucetInfo{
		ID:            "daily",
		ClaimAmount:   tokens.FromUint64(1000),
		ClaimInterval: day,
		Owner:         ownerO,
		Account:       faucetAcc,
	}, f.Info())
	bal, err := f.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, tokens.FromUint64(4321), bal)
}

func TestNewFaucetInvalid(t *testing.T) {
	logger := testlog.Logger(t, log.LevelDebug)
	_, err := NewFaucet(logger, metrics.NoopMetrics{}, "x", &FaucetParams{RateLimit: 1})
	require.ErrorContains(t, err, "claim amount must be positive")
	require.ErrorContains(t, err, "claim interval must be positive")
	require.ErrorContains(t, err, "missing ledger")
	require.ErrorContains(t, err, "missing claim store")
	require.ErrorContains(t, err, "positive burst")
}
