package identity

import "sync"

type subscription struct {
	id      uint64
	handler func(*Identity)
}

// Notifier holds the current identity for a device and fans state changes out to subscribers.
// Deliveries are serialised: no two handlers ever run concurrently and every handler sees
// changes in the order they were published.
type Notifier struct {
	mu      sync.Mutex // guards current, subs, nextID
	deliver sync.Mutex // held for the duration of a delivery round

	current *Identity
	subs    []subscription
	nextID  uint64
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// Current returns the last published identity.
func (n *Notifier) Current() *Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Publish records user as the current identity and notifies all subscribers.
func (n *Notifier) Publish(user *Identity) {
	n.deliver.Lock()
	defer n.deliver.Unlock()

	n.mu.Lock()
	n.current = user
	subs := append([]subscription(nil), n.subs...)
	n.mu.Unlock()

	for _, s := range subs {
		if n.active(s.id) {
			s.handler(user)
		}
	}
}

// Subscribe registers handler and delivers the current identity to it before returning.
func (n *Notifier) Subscribe(handler func(*Identity)) func() {
	n.deliver.Lock()
	defer n.deliver.Unlock()

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, handler: handler})
	current := n.current
	n.mu.Unlock()

	handler(current)

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier) active(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}
