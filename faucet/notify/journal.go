package notify

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
)

// MaxPageSize caps the number of events returned by a single Events call.
const MaxPageSize = 1000

// DefaultCapacity is the number of most recent events a journal retains by default.
const DefaultCapacity = 100_000

// Journal is an append-only log of claimed events, that can be paged through or followed.
// Only the most recent events are retained. Event indices keep counting up after older
// events are dropped.
type Journal struct {
	mu sync.RWMutex
	// ring holds event i at i % capacity
	ring     []ftypes.ClaimedEvent
	capacity uint64
	next     uint64
	feed     event.FeedOf[ftypes.ClaimedEvent]
}

func NewJournal() *Journal {
	return NewJournalWithCapacity(DefaultCapacity)
}

// NewJournalWithCapacity creates a journal that retains up to capacity events, at least 1.
func NewJournalWithCapacity(capacity uint64) *Journal {
	return &Journal{capacity: max(capacity, 1)}
}

// NotifyClaimed records the event, and returns it with its journal index assigned.
func (j *Journal) NotifyClaimed(ev ftypes.ClaimedEvent) ftypes.ClaimedEvent {
	j.mu.Lock()
	ev.Index = j.next
	if uint64(len(j.ring)) < j.capacity {
		j.ring = append(j.ring, ev)
	} else {
		j.ring[ev.Index%j.capacity] = ev
	}
	j.next++
	j.mu.Unlock()
	j.feed.Send(ev)
	return ev
}

// Events returns up to limit events, starting at index from.
// Paging from an index that is no longer retained starts at the oldest retained event.
func (j *Journal) Events(from uint64, limit uint64) []ftypes.ClaimedEvent {
	if limit == 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	from = max(from, j.first())
	if from >= j.next {
		return []ftypes.ClaimedEvent{}
	}
	end := min(from+limit, j.next)
	out := make([]ftypes.ClaimedEvent, 0, end-from)
	for i := from; i < end; i++ {
		out = append(out, j.ring[i%j.capacity])
	}
	return out
}

// First is the index of the oldest retained event.
func (j *Journal) First() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.first()
}

func (j *Journal) first() uint64 {
	return j.next - uint64(len(j.ring))
}

// Len is the number of events recorded so far, including dropped ones.
func (j *Journal) Len() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.next
}

// Feed is the live feed of newly recorded events.
func (j *Journal) Feed() *event.FeedOf[ftypes.ClaimedEvent] {
	return &j.feed
}

// Subscribe follows newly recorded events.
func (j *Journal) Subscribe(ch chan<- ftypes.ClaimedEvent) event.Subscription {
	return j.feed.Subscribe(ch)
}
