package chain

import (
	"context"
	"encoding/json"
	"strings"
)

// Coin is an amount of base units of a denom, e.g. 100ucosm.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (c Coin) String() string {
	return c.Amount + c.Denom
}

// Coins formats as the comma separated list the chain CLI accepts.
type Coins []Coin

func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

// Receipt is the broadcast result of a transaction.
type Receipt struct {
	TxHash string `json:"txhash"`
	Code   uint32 `json:"code"`
	RawLog string `json:"raw_log"`
	Height int64  `json:"height,string"`
}

// Event is one matching result of an event subscription. Attributes are the
// flattened "<type>.<key>" -> values map tendermint publishes.
type Event struct {
	Query      string
	Attributes map[string][]string
}

// First returns the first value of key, the way a single valued attribute
// is read off a possibly multi valued field.
func (e Event) First(key string) (string, bool) {
	vals := e.Attributes[key]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Executor signs (as sender) and broadcasts a contract execution.
type Executor interface {
	ExecuteContract(ctx context.Context, sender, contract string, msg json.Marshaler, funds Coins) (*Receipt, error)
}

// Querier runs read-only smart queries. The query result is decoded into out.
type Querier interface {
	QuerySmart(ctx context.Context, contract string, msg json.Marshaler, out any) error
}

// EventSource opens event subscriptions for a tendermint query string.
type EventSource interface {
	Subscribe(ctx context.Context, query string) (EventStream, error)
}

// EventStream delivers events until it is closed or the connection drops.
// After Events is closed, Err reports why (nil after Close).
type EventStream interface {
	Events() <-chan Event
	Err() error
	Close() error
}
