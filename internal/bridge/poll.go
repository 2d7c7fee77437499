package bridge

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"couple-cards/internal/hub"
	"couple-cards/internal/storage"

	"github.com/cespare/xxhash/v2"
)

// Poll is the last-resort transport: no cross-process signal exists, so it
// watches the shared storage namespace on a fixed interval and emits events
// for records whose content digest changed since the previous sweep.
type Poll struct {
	procs      localProcedures
	shared     *storage.Adapter
	dispatcher *dispatcher
	interval   time.Duration

	mu        sync.Mutex
	digests   map[string]uint64
	connected bool
	stop      chan struct{}
	done      chan struct{}
}

func NewPoll(store *storage.Adapter, interval time.Duration) *Poll {
	return &Poll{
		procs:      newLocalProcedures(store),
		shared:     store.WithProfile(storage.SharedProfile),
		dispatcher: newDispatcher(),
		interval:   interval,
		digests:    make(map[string]uint64),
	}
}

func (p *Poll) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}
	// Seed digests so records that predate this peer are not replayed as
	// fresh changes.
	for key, digest := range p.sweep() {
		p.digests[key] = digest
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.connected = true
	go p.watch(p.stop, p.done)
	return nil
}

func (p *Poll) Disconnect() {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return
	}
	p.connected = false
	stop := p.stop
	done := p.done
	p.mu.Unlock()
	close(stop)
	<-done
}

func (p *Poll) Invoke(ctx context.Context, procedure string, payload any) (json.RawMessage, error) {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if !connected {
		return nil, hub.ErrNotConnected
	}
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	result, err := p.procs.invoke(procedure, raw)
	if err != nil {
		return nil, err
	}
	// Refresh digests so the next sweep does not re-deliver our own write.
	p.mu.Lock()
	for key, digest := range p.sweep() {
		p.digests[key] = digest
	}
	p.mu.Unlock()
	return result, nil
}

func (p *Poll) watch(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poll) tick() {
	current := p.sweep()
	p.mu.Lock()
	var changed, removed []string
	for key, digest := range current {
		if p.digests[key] != digest {
			changed = append(changed, key)
		}
	}
	for key := range p.digests {
		if _, ok := current[key]; !ok {
			removed = append(removed, key)
		}
	}
	p.digests = current
	p.mu.Unlock()

	for _, key := range changed {
		event, ok := eventForKey(key)
		if !ok {
			continue
		}
		raw, found, err := p.shared.Store().Get(storage.SharedProfile, key)
		if err != nil || !found {
			continue
		}
		p.dispatcher.dispatch(event, json.RawMessage(raw))
	}
	for _, key := range removed {
		if strings.HasPrefix(key, "session:") {
			p.dispatcher.dispatch(hub.EventSessionEnded, nil)
		}
	}
}

// sweep digests every watched record currently in the shared namespace.
func (p *Poll) sweep() map[string]uint64 {
	keys, err := p.shared.Keys()
	if err != nil {
		log.Printf("bridge: poll key listing failed: %v", err)
		return map[string]uint64{}
	}
	digests := make(map[string]uint64, len(keys))
	for _, key := range keys {
		if _, ok := eventForKey(key); !ok {
			continue
		}
		raw, found, err := p.shared.Store().Get(storage.SharedProfile, key)
		if err != nil || !found {
			continue
		}
		digests[key] = contentDigest(raw)
	}
	return digests
}

func eventForKey(key string) (string, bool) {
	switch {
	case strings.HasPrefix(key, "couple:"):
		return hub.EventCoupleUpdated, true
	case strings.HasPrefix(key, "session:"):
		return hub.EventSessionUpdated, true
	}
	return "", false
}

// contentDigest hashes the canonical form of a JSON record. Unmarshal plus
// re-marshal sorts object keys, so key order cannot fake a change.
func contentDigest(raw []byte) uint64 {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return xxhash.Sum64(raw)
	}
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return xxhash.Sum64(raw)
	}
	return xxhash.Sum64(canonical)
}

func (p *Poll) On(event string, handler hub.Handler) hub.Subscription {
	return p.dispatcher.On(event, handler)
}

func (p *Poll) Off(event string, sub hub.Subscription) {
	p.dispatcher.Off(event, sub)
}

func (p *Poll) Emit(event string, payload any) {
	p.dispatcher.Emit(event, payload)
}
