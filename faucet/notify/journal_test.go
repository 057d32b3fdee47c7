package notify

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

func claimed(i uint64) ftypes.ClaimedEvent {
	return ftypes.ClaimedEvent{
		Faucet:    "daily",
		Identity:  common.BigToAddress(new(big.Int).SetUint64(i + 1)),
		Amount:    tokens.FromUint64(1000),
		Timestamp: i * 100,
	}
}

func TestJournal(t *testing.T) {
	j := NewJournal()
	require.Empty(t, j.Events(0, 10))

	ch := make(chan ftypes.ClaimedEvent, 10)
	sub := j.Subscribe(ch)
	defer sub.Unsubscribe()

	for i := uint64(0); i < 5; i++ {
		ev := j.NotifyClaimed(claimed(i))
		require.Equal(t, i, ev.Index)
	}
	require.Equal(t, uint64(5), j.Len())

	for i := uint64(0); i < 5; i++ {
		select {
		case ev := <-ch:
			require.Equal(t, i, ev.Index)
			require.Equal(t, claimed(i).Identity, ev.Identity)
		case <-time.After(time.Second):
			t.Fatal("expected event on feed")
		}
	}

	page := j.Events(1, 2)
	require.Len(t, page, 2)
	require.Equal(t, uint64(1), page[0].Index)
	require.Equal(t, uint64(2), page[1].Index)

	require.Len(t, j.Events(3, 100), 2)
	require.Len(t, j.Events(0, 0), 5, "zero limit uses the max page size")
	require.Empty(t, j.Events(5, 10))

	// returned pages are copies
	page[0].Timestamp = 12345
	require.Equal(t, uint64(100), j.Events(1, 1)[0].Timestamp)
}

func TestJournalCapacity(t *testing.T) {
	j := NewJournalWithCapacity(3)
	for i := uint64(0); i < 7; i++ {
		require.Equal(t, i, j.NotifyClaimed(claimed(i)).Index)
	}
	require.Equal(t, uint64(7), j.Len())
	require.Equal(t, uint64(4), j.First())

	page := j.Events(0, 10)
	require.Len(t, page, 3, "dropped events are skipped")
	for k, ev := range page {
		require.Equal(t, uint64(4+k), ev.Index)
		require.Equal(t, claimed(uint64(4+k)).Identity, ev.Identity)
	}
	page = j.Events(5, 1)
	require.Len(t, page, 1)
	require.Equal(t, uint64(5), page[0].Index)
	require.Empty(t, j.Events(7, 10))

	require.Equal(t, uint64(0), NewJournalWithCapacity(0).NotifyClaimed(claimed(0)).Index)
}
