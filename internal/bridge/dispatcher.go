package bridge

import (
	"encoding/json"
	"log"
	"sync"

	"couple-cards/internal/hub"
)

// dispatcher is the handler registry shared by every bridge variant. A
// panicking handler is logged and must not break delivery to the rest.
type dispatcher struct {
	mu       sync.Mutex
	next     hub.Subscription
	handlers map[string]map[hub.Subscription]hub.Handler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[string]map[hub.Subscription]hub.Handler)}
}

func (d *dispatcher) On(event string, handler hub.Handler) hub.Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	group := d.handlers[event]
	if group == nil {
		group = make(map[hub.Subscription]hub.Handler)
		d.handlers[event] = group
	}
	group[d.next] = handler
	return d.next
}

func (d *dispatcher) Off(event string, sub hub.Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers[event], sub)
}

func (d *dispatcher) Emit(event string, payload any) {
	raw, err := marshalPayload(payload)
	if err != nil {
		log.Printf("bridge: dropping emit event=%s: %v", event, err)
		return
	}
	d.dispatch(event, raw)
}

func (d *dispatcher) dispatch(event string, payload json.RawMessage) {
	d.mu.Lock()
	group := d.handlers[event]
	handlers := make([]hub.Handler, 0, len(group))
	for _, handler := range group {
		handlers = append(handlers, handler)
	}
	d.mu.Unlock()
	for _, handler := range handlers {
		deliver(event, handler, payload)
	}
}

func deliver(event string, handler hub.Handler, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bridge: handler panic event=%s: %v", event, r)
		}
	}()
	handler(payload)
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch value := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return value, nil
	case []byte:
		return json.RawMessage(value), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
