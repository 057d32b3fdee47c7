package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

var lastClaimedAtPrefix = []byte("lastClaimedAt/")

var errCorruptEntry = errors.New("corrupt claim entry")

// Pebble is a persistent ClaimStore.
type Pebble struct {
	log log.Logger
	db  *pebble.DB
}

var _ ClaimStore = (*Pebble)(nil)

// OpenPebble opens, or creates, the claim database in the given directory.
func OpenPebble(logger log.Logger, path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open claim db at %q: %w", path, err)
	}
	logger.Info("Opened claim db", "path", path)
	return &Pebble{log: logger, db: db}, nil
}

func lastClaimedAtKey(id common.Address) []byte {
	key := make([]byte, 0, len(lastClaimedAtPrefix)+common.AddressLength)
	key = append(key, lastClaimedAtPrefix...)
	return append(key, id.Bytes()...)
}

func (p *Pebble) LastClaimedAt(id common.Address) (uint64, bool, error) {
	val, closer, err := p.db.Get(lastClaimedAtKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("failed to read claim entry of %s: %w", id, err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, false, fmt.Errorf("%w: %s has %d bytes", errCorruptEntry, id, len(val))
	}
	return binary.BigEndian.Uint64(val), true, nil
}

func (p *Pebble) SetLastClaimedAt(id common.Address, ts uint64) error {
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], ts)
	if err := p.db.Set(lastClaimedAtKey(id), val[:], pebble.Sync); err != nil {
		return fmt.Errorf("failed to write claim entry of %s: %w", id, err)
	}
	return nil
}

func (p *Pebble) Forget(id common.Address) error {
	if err := p.db.Delete(lastClaimedAtKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete claim entry of %s: %w", id, err)
	}
	return nil
}

// Len counts the identities that have claimed.
func (p *Pebble) Len() (int, error) {
	upper := append([]byte{}, lastClaimedAtPrefix...)
	upper[len(upper)-1]++
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lastClaimedAtPrefix,
		UpperBound: upper,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open iterator: %w", err)
	}
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Close()
}

func (p *Pebble) Close() error {
	p.log.Info("Closing claim db")
	return p.db.Close()
}
