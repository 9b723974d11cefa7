package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"transfers-client/internal/chain"
	"transfers-client/internal/contract"
	"transfers-client/internal/event"
	"transfers-client/internal/keymaterial"

	ethevent "github.com/ethereum/go-ethereum/event"
)

const (
	testContract  = "wasm1contract"
	legalWinner24 = "legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth title"
)

// callLog is shared by the fakes to assert ordering across collaborators.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeKeys struct {
	kp  *keymaterial.KeyPair
	err error
}

func (k *fakeKeys) CurrentKeyPair(context.Context) (*keymaterial.KeyPair, error) {
	return k.kp, k.err
}

type fakeSub struct {
	filter string
	log    *callLog
	once   sync.Once
	errc   chan error
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() {
		s.log.add("unsubscribe:%s", s.filter)
		close(s.errc)
	})
}

func (s *fakeSub) Err() <-chan error { return s.errc }

// drop ends the subscription the way a lost stream does.
func (s *fakeSub) drop(err error) {
	s.once.Do(func() {
		s.errc <- err
		close(s.errc)
	})
}

type fakeCorrelator struct {
	log *callLog

	mu       sync.Mutex
	handlers map[string]event.Handler
	subs     map[string]*fakeSub
	err      error
}

func newFakeCorrelator(log *callLog) *fakeCorrelator {
	return &fakeCorrelator{log: log, handlers: map[string]event.Handler{}, subs: map[string]*fakeSub{}}
}

func (c *fakeCorrelator) Subscribe(_ context.Context, filter string, onEvent event.Handler) (ethevent.Subscription, error) {
	c.log.add("subscribe:%s", filter)
	if c.err != nil {
		return nil, c.err
	}
	sub := &fakeSub{filter: filter, log: c.log, errc: make(chan error, 1)}
	c.mu.Lock()
	c.handlers[filter] = onEvent
	c.subs[filter] = sub
	c.mu.Unlock()
	return sub, nil
}

// deliver emits a store_balance event for account to the live handler.
func (c *fakeCorrelator) deliver(account, payload string) bool {
	filter := contract.BalanceResponseFilter(testContract, account)
	c.mu.Lock()
	h := c.handlers[filter]
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(chain.Event{Attributes: map[string][]string{
		contract.EventContractAddress:  {testContract},
		contract.EventBalanceAddress:   {account},
		contract.EventEncryptedBalance: {payload},
	}})
	return true
}

func (c *fakeCorrelator) sub(account string) *fakeSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[contract.BalanceResponseFilter(testContract, account)]
}

type fakeExecutor struct {
	log *callLog
	err error
	// onExecute runs after the call is recorded, e.g. to emit the response event.
	onExecute func(ctx context.Context, sender string)
}

func (e *fakeExecutor) ExecuteContract(ctx context.Context, sender, contractAddr string, msg json.Marshaler, funds chain.Coins) (*chain.Receipt, error) {
	body, _ := msg.MarshalJSON()
	e.log.add("execute:%s:%s", sender, string(body))
	if e.onExecute != nil {
		e.onExecute(ctx, sender)
	}
	if e.err != nil {
		return nil, e.err
	}
	return &chain.Receipt{TxHash: "HASH"}, nil
}

type fakeQuerier struct {
	log      *callLog
	payloads map[string]string
	err      error
}

func (q *fakeQuerier) QuerySmart(_ context.Context, contractAddr string, msg json.Marshaler, out any) error {
	body, _ := msg.MarshalJSON()
	q.log.add("query:%s", string(body))
	if q.err != nil {
		return q.err
	}
	var m struct {
		GetBalance struct {
			Address string `json:"address"`
		} `json:"get_balance"`
	}
	_ = json.Unmarshal(body, &m)
	*(out.(*string)) = q.payloads[m.GetBalance.Address]
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (n *recordingNotifier) Notify(_ context.Context, o Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, o)
	return nil
}

func (n *recordingNotifier) all() []Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Outcome(nil), n.outcomes...)
}
