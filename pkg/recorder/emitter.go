package recorder

import (
	"maps"
	"slices"
	"sync"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// Handler handles a recorder event.
type Handler = func(itslanguage.RecorderEventData)

// Emitter is a thread-safe registry of per-event subscriptions.
// The zero value is ready to use.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[itslanguage.RecorderEvent]map[uint64]Handler
}

// Subscribe registers fn for event and returns a function removing it.
// The returned function is idempotent.
func (e *Emitter) Subscribe(event itslanguage.RecorderEvent, fn Handler) func() {
	e.mu.Lock()
	if e.handlers == nil {
		e.handlers = make(map[itslanguage.RecorderEvent]map[uint64]Handler)
	}
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[uint64]Handler)
	}
	id := e.nextID
	e.nextID++
	e.handlers[event][id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[event], id)
	}
}

// Emit calls every handler of event in subscription order.
// Handlers run on the calling goroutine without the lock held.
func (e *Emitter) Emit(event itslanguage.RecorderEvent, data itslanguage.RecorderEventData) {
	e.mu.RLock()
	subs := e.handlers[event]
	ids := slices.Sorted(maps.Keys(subs))
	fns := make([]Handler, len(ids))
	for i, id := range ids {
		fns[i] = subs[id]
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(data)
	}
}

// Count returns the number of handlers subscribed to event.
func (e *Emitter) Count(event itslanguage.RecorderEvent) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

