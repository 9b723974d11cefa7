package balance

import (
	"context"
	"sync"

	ethevent "github.com/ethereum/go-ethereum/event"
)

// pending tracks one in-flight round trip so an account switch can tear it
// down from outside.
type pending struct {
	account string
	gen     uint64
	cancel  context.CancelFunc

	// first delivered payload wins
	payloads chan string
	done     chan struct{}

	mu      sync.Mutex
	sub     ethevent.Subscription
	aborted error
}

func newPending(account string, gen uint64, cancel context.CancelFunc) *pending {
	return &pending{
		account:  account,
		gen:      gen,
		cancel:   cancel,
		payloads: make(chan string, 1),
		done:     make(chan struct{}),
	}
}

// offer must never block: it runs on the correlator's delivery goroutine.
func (p *pending) offer(payload string) {
	select {
	case p.payloads <- payload:
	default:
	}
}

// attach records the live subscription. It returns false when the round
// trip was aborted in the meantime; the caller then owns the teardown.
func (p *pending) attach(sub ethevent.Subscription) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.aborted != nil {
		return false
	}
	p.sub = sub
	return true
}

// detach unsubscribes, once.
func (p *pending) detach() {
	p.mu.Lock()
	sub := p.sub
	p.sub = nil
	p.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// abort cancels the round trip and tears down its subscription before
// returning.
func (p *pending) abort(reason error) {
	p.mu.Lock()
	if p.aborted == nil {
		p.aborted = reason
	}
	p.mu.Unlock()
	p.cancel()
	p.detach()
}

func (p *pending) abortReason() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}
