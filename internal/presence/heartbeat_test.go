package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingAnnouncer struct {
	mu       sync.Mutex
	announce int
	offline  int
	fail     bool
}

func (c *countingAnnouncer) Announce(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.announce++
	if c.fail {
		return errors.New("write failed")
	}
	return nil
}

func (c *countingAnnouncer) MarkOffline(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline++
	return nil
}

func (c *countingAnnouncer) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.announce, c.offline
}

func TestHeartbeatAnnouncesOnSchedule(t *testing.T) {
	announcer := &countingAnnouncer{}
	hb := NewHeartbeat(announcer, 10*time.Millisecond)
	hb.Start(context.Background())
	t.Cleanup(hb.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count, _ := announcer.counts(); count >= 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("heartbeat never fired enough beats")
}

func TestHeartbeatStopsCleanly(t *testing.T) {
	announcer := &countingAnnouncer{}
	hb := NewHeartbeat(announcer, 5*time.Millisecond)
	hb.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	hb.Stop()

	afterStop, offline := announcer.counts()
	if offline != 1 {
		t.Fatalf("stop must write the offline hint once, got %d", offline)
	}
	time.Sleep(30 * time.Millisecond)
	later, _ := announcer.counts()
	if later != afterStop {
		t.Fatalf("beats continued after stop: %d then %d", afterStop, later)
	}

	// Stopping again is a no-op.
	hb.Stop()
	if _, offline := announcer.counts(); offline != 1 {
		t.Fatalf("second stop wrote another offline hint")
	}
}

func TestHeartbeatSurvivesFailedWrites(t *testing.T) {
	announcer := &countingAnnouncer{fail: true}
	hb := NewHeartbeat(announcer, 5*time.Millisecond)
	hb.Start(context.Background())
	t.Cleanup(hb.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if count, _ := announcer.counts(); count >= 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("schedule stopped after failed writes")
}

func TestStaleBoundary(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	threshold := 30 * time.Second
	if !Stale(now.Add(-threshold), now, threshold) {
		t.Fatalf("exactly at the threshold must be stale")
	}
	if Stale(now.Add(-threshold+time.Second), now, threshold) {
		t.Fatalf("inside the threshold must not be stale")
	}
}
