// Package events is the page-wide signal bus components and hosts talk through.
package events

import "sync"

// Event names
const (
	Logout          = "logout"
	LoginSuccess    = "login-success"
	TeacherSelected = "teacher-selected"
)

type (
	Event struct {
		Name   string
		Detail interface{}
	}

	Handler func(Event)

	subscription struct {
		id      int
		handler Handler
	}

	// Bus delivers every published Event synchronously to the handlers subscribed to its name,
	// in subscription order. The zero value is ready to use.
	Bus struct {
		mu     sync.RWMutex
		nextID int
		subs   map[string][]subscription
	}
)

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers `h` for events named `name` and returns the func removing it.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[string][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls the handlers subscribed to `evt.Name`. Handlers may publish or (un)subscribe.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[evt.Name]))
	copy(subs, b.subs[evt.Name])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(evt)
	}
}
