package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"transfers-client/internal/service/balance"
)

// Notifier publishes balance outcomes, keyed by account.
type Notifier struct {
	producer Producer
	topic    string
}

func NewNotifier(producer Producer, topic string) *Notifier {
	return &Notifier{producer: producer, topic: topic}
}

func (n *Notifier) Notify(ctx context.Context, o balance.Outcome) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return n.producer.Publish(ctx, n.topic, o.Account, payload)
}

// DecodeOutcome is the consumer side of Notify.
func DecodeOutcome(msg *Message) (balance.Outcome, error) {
	var o balance.Outcome
	if err := json.Unmarshal(msg.Payload, &o); err != nil {
		return o, fmt.Errorf("decode outcome %s: %w", msg.ID, err)
	}
	return o, nil
}
