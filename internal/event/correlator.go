package event

import (
	"context"

	"transfers-client/internal/chain"
	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"

	ethevent "github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// Handler receives matching events on the subscription's delivery
// goroutine. It must not call Unsubscribe on its own subscription.
type Handler func(chain.Event)

// Correlator keeps filtered event subscriptions on top of an EventSource.
type Correlator struct {
	source chain.EventSource
	log    *zap.Logger
}

func NewCorrelator(source chain.EventSource, log *zap.Logger) *Correlator {
	if log == nil {
		log = logger.Named("correlator")
	}
	return &Correlator{source: source, log: log}
}

// Subscribe opens a stream for filter and calls onEvent for every event
// that matches all of its clauses, in arrival order. The returned
// subscription's Unsubscribe is idempotent, closes the stream and returns
// only after the last delivery has finished. A dropped stream ends the
// subscription with ErrSubscriptionClosed on Err(); it is not retried.
func (c *Correlator) Subscribe(ctx context.Context, filter string, onEvent Handler) (ethevent.Subscription, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	stream, err := c.source.Subscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	log := c.log.With(zap.String("filter", filter))
	log.Debug("subscription established")

	return ethevent.NewSubscription(func(quit <-chan struct{}) error {
		defer stream.Close()

		for {
			select {
			case <-quit:
				log.Debug("unsubscribed")
				return nil
			case ev, ok := <-stream.Events():
				if !ok {
					err := stream.Err()
					if err == nil {
						err = errno.ErrSubscriptionClosed
					}
					log.Warn("event stream closed", zap.Error(err))
					return err
				}
				if !f.Matches(ev) {
					log.Debug("dropping non matching event")
					continue
				}
				select {
				case <-quit:
					return nil
				default:
				}
				onEvent(ev)
			}
		}
	}), nil
}
