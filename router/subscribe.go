package router

import "sync"

// Subscriber receives watch events dispatched by the router's reader loop.
// Implemented by *xenstore.Monitor; the router only depends on this
// narrow interface so it never imports the client package.
type Subscriber interface {
	Notify(path, token string)
}

// subscriberMap is the router's watch-token -> subscriber-set table. Keys
// are added on first subscribe, removed on last unsubscribe (§3,
// "Router state"). Multiple monitors may share a token; all receive a
// copy of a matching event.
type subscriberMap struct {
	mu   sync.Mutex
	subs map[string]map[Subscriber]struct{}
}

func newSubscriberMap() *subscriberMap {
	return &subscriberMap{subs: make(map[string]map[Subscriber]struct{})}
}

func (m *subscriberMap) subscribe(token string, sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.subs[token]
	if !ok {
		set = make(map[Subscriber]struct{})
		m.subs[token] = set
	}
	set[sub] = struct{}{}
}

// unsubscribe is idempotent: unsubscribing a token/subscriber pair that
// isn't registered is a no-op.
func (m *subscriberMap) unsubscribe(token string, sub Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.subs[token]
	if !ok {
		return
	}

	delete(set, sub)
	if len(set) == 0 {
		delete(m.subs, token)
	}
}

// dispatch fans an event for token out to every currently-subscribed
// Subscriber. An event for a token with no subscribers is silently
// dropped — the subscription may have been removed between delivery and
// dispatch (§4.4).
func (m *subscriberMap) dispatch(path, token string) {
	m.mu.Lock()
	set := m.subs[token]
	subs := make([]Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.Notify(path, token)
	}
}
