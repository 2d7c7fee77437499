// Package presence keeps a partner's last-seen fresh on a fixed schedule
// and derives liveness from last-seen age.
package presence

import (
	"context"
	"log"
	"sync"
	"time"
)

// Announcer publishes this partner's liveness to everywhere a peer can
// read it.
type Announcer interface {
	Announce(ctx context.Context) error
	MarkOffline(ctx context.Context) error
}

// Heartbeat announces presence on a fixed interval until stopped. A failed
// announce is logged; the schedule never stops on error.
type Heartbeat struct {
	announcer Announcer
	interval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewHeartbeat(announcer Announcer, interval time.Duration) *Heartbeat {
	return &Heartbeat{announcer: announcer, interval: interval}
}

// Start begins the heartbeat loop. Starting an already-running heartbeat
// is a no-op.
func (h *Heartbeat) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	h.started = true
	go h.loop(loopCtx, h.done)
}

func (h *Heartbeat) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	if err := h.announcer.Announce(ctx); err != nil {
		log.Printf("presence: announce failed: %v", err)
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.announcer.Announce(ctx); err != nil {
				log.Printf("presence: announce failed: %v", err)
			}
		}
	}
}

// Stop halts the schedule and writes the best-effort offline hint. No
// announce fires after Stop returns.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.cancel()
	done := h.done
	h.started = false
	h.mu.Unlock()
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.announcer.MarkOffline(ctx); err != nil {
		log.Printf("presence: offline hint failed: %v", err)
	}
}

// Stale reports whether a last-seen timestamp has aged past the threshold.
// Exactly at the threshold counts as stale.
func Stale(lastSeen, now time.Time, threshold time.Duration) bool {
	return now.Sub(lastSeen) >= threshold
}
