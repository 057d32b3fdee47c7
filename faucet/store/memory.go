package store

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/mantlenetworkio/claim-faucet/service/locks"
)

// Memory is a ClaimStore that does not survive a restart.
type Memory struct {
	entries locks.RWMap[common.Address, uint64]
}

var _ ClaimStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LastClaimedAt(id common.Address) (uint64, bool, error) {
	ts, ok := m.entries.Get(id)
	return ts, ok, nil
}

func (m *Memory) SetLastClaimedAt(id common.Address, ts uint64) error {
	m.entries.Set(id, ts)
	return nil
}

func (m *Memory) Forget(id common.Address) error {
	m.entries.Delete(id)
	return nil
}

// Len returns the number of identities that have claimed.
func (m *Memory) Len() int {
	return m.entries.Len()
}

func (m *Memory) Close() error {
	return nil
}
