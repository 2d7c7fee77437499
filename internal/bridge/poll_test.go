package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"couple-cards/internal/couple"
	"couple-cards/internal/hub"
	"couple-cards/internal/storage"
)

func newPoll(t *testing.T, store *storage.Memory) *Poll {
	t.Helper()
	p := NewPoll(storage.NewAdapter(store, "alice"), 10*time.Millisecond)
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(p.Disconnect)
	return p
}

func TestPollDetectsForeignWrite(t *testing.T) {
	store := storage.NewMemory()
	p := newPoll(t, store)

	frames := make(chan json.RawMessage, 4)
	p.On(hub.EventCoupleUpdated, func(payload json.RawMessage) {
		frames <- payload
	})

	// Another peer writes the shared record behind our back.
	record, _ := json.Marshal(couple.Couple{ID: "love_1699999999"})
	if err := store.Put(storage.SharedProfile, "couple:love_1699999999", record); err != nil {
		t.Fatalf("put: %v", err)
	}

	payload := waitForEvent(t, "poll change detection", frames)
	var got couple.Couple
	if err := json.Unmarshal(payload, &got); err != nil || got.ID != "love_1699999999" {
		t.Fatalf("unexpected payload %s: %v", payload, err)
	}
}

func TestPollSkipsPreexistingRecords(t *testing.T) {
	store := storage.NewMemory()
	record, _ := json.Marshal(couple.Couple{ID: "old"})
	if err := store.Put(storage.SharedProfile, "couple:old", record); err != nil {
		t.Fatalf("put: %v", err)
	}

	p := newPoll(t, store)
	frames := make(chan json.RawMessage, 4)
	p.On(hub.EventCoupleUpdated, func(payload json.RawMessage) {
		frames <- payload
	})

	select {
	case payload := <-frames:
		t.Fatalf("record predating connect replayed: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollDoesNotEchoOwnWrites(t *testing.T) {
	store := storage.NewMemory()
	p := newPoll(t, store)

	frames := make(chan json.RawMessage, 4)
	p.On(hub.EventCoupleUpdated, func(payload json.RawMessage) {
		frames <- payload
	})

	if _, err := p.Invoke(context.Background(), hub.ProcUpdateCouple, couple.Couple{ID: "c1"}); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	select {
	case payload := <-frames:
		t.Fatalf("own write echoed back: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollEmitsSessionEndedOnRemoval(t *testing.T) {
	store := storage.NewMemory()
	record, _ := json.Marshal(couple.Session{ID: "s1", CoupleID: "c1"})
	if err := store.Put(storage.SharedProfile, "session:c1", record); err != nil {
		t.Fatalf("put: %v", err)
	}

	p := newPoll(t, store)
	ended := make(chan json.RawMessage, 1)
	p.On(hub.EventSessionEnded, func(payload json.RawMessage) {
		ended <- payload
	})

	if err := store.Delete(storage.SharedProfile, "session:c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	waitForEvent(t, "session removal", ended)
}

func TestContentDigestIgnoresKeyOrder(t *testing.T) {
	a := contentDigest([]byte(`{"a":1,"b":2}`))
	b := contentDigest([]byte(`{"b":2,"a":1}`))
	if a != b {
		t.Fatalf("key order changed the digest")
	}
	c := contentDigest([]byte(`{"a":1,"b":3}`))
	if a == c {
		t.Fatalf("content change did not change the digest")
	}
}
