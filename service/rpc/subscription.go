package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

const subscriptionBuffer = 16

// StreamFeed creates an RPC subscription on the notifier of ctx,
// and streams every feed value accepted by keep to it.
// A nil keep accepts everything.
// The stream ends when the RPC subscriber leaves or notification fails.
func StreamFeed[T any](ctx context.Context, logger log.Logger, feed *event.FeedOf[T], keep func(T) bool) (*gethrpc.Subscription, error) {
	notifier, ok := gethrpc.NotifierFromContext(ctx)
	if !ok {
		return &gethrpc.Subscription{}, gethrpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	logger = logger.New("subscription", sub.ID)
	logger.Debug("RPC subscription opened")

	values := make(chan T, subscriptionBuffer)
	feedSub := feed.Subscribe(values)
	go func() {
		defer feedSub.Unsubscribe()
		for {
			select {
			case v := <-values:
				if keep != nil && !keep(v) {
					continue
				}
				if err := notifier.Notify(sub.ID, v); err != nil {
					logger.Warn("Dropping RPC subscription, notify failed", "err", err)
					return
				}
			case err := <-sub.Err():
				if err != nil {
					logger.Warn("RPC subscription errored", "err", err)
				} else {
					logger.Debug("RPC subscription closed")
				}
				return
			}
		}
	}()
	return sub, nil
}
