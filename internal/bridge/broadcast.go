package bridge

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"couple-cards/internal/hub"
	"couple-cards/internal/storage"

	"github.com/google/uuid"
)

const maxBroadcastLog = 200

// broadcastMessage is one frame on the shared channel. Sequence plus origin
// let receivers drop duplicates and their own echoes.
type broadcastMessage struct {
	Origin  string          `json:"origin"`
	Seq     uint64          `json:"seq"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// Broadcast simulates the remote hub over a cross-context broadcast
// primitive. Invokes are applied to the shared storage namespace and then
// re-broadcast to the other peers on the origin.
type Broadcast struct {
	channel    Channel
	procs      localProcedures
	shared     *storage.Adapter
	dispatcher *dispatcher
	origin     string

	mu        sync.Mutex
	seq       uint64
	seen      map[string]uint64
	connected bool
	cancelSub func()
	done      chan struct{}
}

func NewBroadcast(store *storage.Adapter, channel Channel) *Broadcast {
	return &Broadcast{
		channel:    channel,
		procs:      newLocalProcedures(store),
		shared:     store.WithProfile(storage.SharedProfile),
		dispatcher: newDispatcher(),
		origin:     uuid.New().String(),
		seen:       make(map[string]uint64),
	}
}

func (b *Broadcast) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connected {
		return nil
	}
	frames, cancel, err := b.channel.Subscribe(ctx)
	if err != nil {
		return err
	}
	b.cancelSub = cancel
	b.done = make(chan struct{})
	b.connected = true
	go b.readLoop(frames, b.done)
	return nil
}

func (b *Broadcast) Disconnect() {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return
	}
	b.connected = false
	cancel := b.cancelSub
	done := b.done
	b.cancelSub = nil
	b.mu.Unlock()
	cancel()
	<-done
}

func (b *Broadcast) Invoke(ctx context.Context, procedure string, payload any) (json.RawMessage, error) {
	b.mu.Lock()
	connected := b.connected
	b.mu.Unlock()
	if !connected {
		return nil, hub.ErrNotConnected
	}
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	result, err := b.procs.invoke(procedure, raw)
	if err != nil {
		return nil, err
	}
	if event, ok := hub.EventForProcedure(procedure); ok {
		b.publish(ctx, event, result)
	}
	return result, nil
}

func (b *Broadcast) publish(ctx context.Context, event string, payload json.RawMessage) {
	b.mu.Lock()
	b.seq++
	message := broadcastMessage{
		Origin:  b.origin,
		Seq:     b.seq,
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}
	b.mu.Unlock()
	b.appendLog(message)
	raw, err := json.Marshal(message)
	if err != nil {
		log.Printf("bridge: broadcast marshal failed event=%s: %v", event, err)
		return
	}
	if err := b.channel.Publish(ctx, raw); err != nil {
		log.Printf("bridge: broadcast publish failed event=%s: %v", event, err)
	}
}

// appendLog keeps the shared append log of broadcast frames so a peer that
// joins late can tell what it missed.
func (b *Broadcast) appendLog(message broadcastMessage) {
	var entries []broadcastMessage
	if _, err := b.shared.ReadJSON(storage.KeyBroadcastLog, &entries); err != nil {
		log.Printf("bridge: broadcast log read failed: %v", err)
		return
	}
	entries = append(entries, message)
	if len(entries) > maxBroadcastLog {
		entries = entries[len(entries)-maxBroadcastLog:]
	}
	if err := b.shared.WriteJSON(storage.KeyBroadcastLog, entries); err != nil {
		log.Printf("bridge: broadcast log write failed: %v", err)
	}
}

func (b *Broadcast) readLoop(frames <-chan []byte, done chan struct{}) {
	defer close(done)
	for raw := range frames {
		var message broadcastMessage
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Printf("bridge: dropping malformed broadcast frame: %v", err)
			continue
		}
		if !b.accept(message) {
			continue
		}
		b.dispatcher.dispatch(message.Event, message.Payload)
	}
}

// accept drops self-originated frames (the local optimistic update already
// applied them) and frames at or below the highest sequence seen per origin.
func (b *Broadcast) accept(message broadcastMessage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if message.Origin == b.origin {
		return false
	}
	if message.Seq <= b.seen[message.Origin] {
		return false
	}
	b.seen[message.Origin] = message.Seq
	return true
}

func (b *Broadcast) On(event string, handler hub.Handler) hub.Subscription {
	return b.dispatcher.On(event, handler)
}

func (b *Broadcast) Off(event string, sub hub.Subscription) {
	b.dispatcher.Off(event, sub)
}

func (b *Broadcast) Emit(event string, payload any) {
	b.dispatcher.Emit(event, payload)
}
