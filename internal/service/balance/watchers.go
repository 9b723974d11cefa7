package balance

import (
	"sync"

	ethevent "github.com/ethereum/go-ethereum/event"
)

// watchers fans snapshots out to state subscribers. Sends never block: a
// subscriber whose buffer is full misses that snapshot.
type watchers struct {
	mu   sync.Mutex
	subs map[*watcher]struct{}
}

type watcher struct {
	ch chan<- Snapshot
}

func (w *watchers) subscribe(ch chan<- Snapshot) ethevent.Subscription {
	ws := &watcher{ch: ch}
	w.mu.Lock()
	if w.subs == nil {
		w.subs = make(map[*watcher]struct{})
	}
	w.subs[ws] = struct{}{}
	w.mu.Unlock()

	return ethevent.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		w.mu.Lock()
		delete(w.subs, ws)
		w.mu.Unlock()
		return nil
	})
}

// send returns how many subscribers missed s.
func (w *watchers) send(s Snapshot) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	missed := 0
	for ws := range w.subs {
		select {
		case ws.ch <- s:
		default:
			missed++
		}
	}
	return missed
}
