package store

import "sync"

// notifier fans change events out to subscribers. Used by the sqlite
// backend (in-process feed) and by the postgres backend to demultiplex
// its LISTEN connection.
type notifier struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[*subscription]struct{})}
}

type subscription struct {
	n  *notifier
	fn func(Event)

	once sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.n.mu.Lock()
		delete(s.n.subs, s)
		s.n.mu.Unlock()
	})
}

func (n *notifier) subscribe(fn func(Event)) Subscription {
	s := &subscription{n: n, fn: fn}
	n.mu.Lock()
	n.subs[s] = struct{}{}
	n.mu.Unlock()
	return s
}

// publish invokes every subscriber synchronously. Callbacks must not
// block; the bridge applies events to an in-memory cache only.
func (n *notifier) publish(ev Event) {
	n.mu.Lock()
	subs := make([]*subscription, 0, len(n.subs))
	for s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

func (n *notifier) subscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
