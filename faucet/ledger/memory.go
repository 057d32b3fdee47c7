package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

// ErrBalanceOverflow is returned by a transfer that would overflow the recipient balance.
var ErrBalanceOverflow = errors.New("recipient balance overflow")

// Memory is an in-process token ledger.
// All balance changes happen under a single lock, so a transfer is atomic.
type Memory struct {
	mu       sync.RWMutex
	account  common.Address
	balances map[common.Address]tokens.Amount
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates a ledger where account holds the initial balance.
func NewMemory(account common.Address, initial tokens.Amount) *Memory {
	m := &Memory{
		account:  account,
		balances: make(map[common.Address]tokens.Amount),
	}
	if !initial.IsZero() {
		m.balances[account] = initial
	}
	return m
}

func (m *Memory) Account() common.Address {
	return m.account
}

func (m *Memory) BalanceOf(ctx context.Context, account common.Address) (tokens.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[account], nil
}

func (m *Memory) Transfer(ctx context.Context, to common.Address, amount tokens.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.balances[m.account]
	remaining, underflow := from.SubUnderflow(amount)
	if underflow {
		return &InsufficientBalanceError{Available: from, Requested: amount}
	}
	if to == m.account {
		return nil
	}
	received, overflow := m.balances[to].AddOverflow(amount)
	if overflow {
		return fmt.Errorf("%w: %s holds %s", ErrBalanceOverflow, to, m.balances[to].Decimal())
	}
	m.balances[m.account] = remaining
	m.balances[to] = received
	return nil
}

// Credit mints amount into the given account. The result saturates at the maximum amount.
// This funds the ledger, the faucet itself never calls it.
func (m *Memory) Credit(account common.Address, amount tokens.Amount) tokens.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, overflow := m.balances[account].AddOverflow(amount)
	if overflow {
		out = tokens.MaxAmount
	}
	m.balances[account] = out
	return out
}

func (m *Memory) Close() {}
