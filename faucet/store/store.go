package store

import (
	"github.com/ethereum/go-ethereum/common"
)

// ClaimStore records when each identity last claimed from a faucet.
// Entries are keyed by identity, timestamps are unix seconds.
type ClaimStore interface {
	// LastClaimedAt returns the last claim time of id, and ok=false if id never claimed.
	LastClaimedAt(id common.Address) (ts uint64, ok bool, err error)
	SetLastClaimedAt(id common.Address, ts uint64) error
	// Forget removes the entry of id, as if it never claimed.
	Forget(id common.Address) error
	Close() error
}
