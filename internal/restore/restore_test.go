package restore

import (
	"context"
	"testing"
	"time"

	"couple-cards/internal/couple"
)

type fakeAgent struct {
	self         *couple.Partner
	session      *couple.Session
	freshPairing bool
	rehydrated   bool
	left         bool
}

func (f *fakeAgent) Self() *couple.Partner    { return f.self }
func (f *fakeAgent) Session() *couple.Session { return f.session }
func (f *fakeAgent) FreshPairing() bool       { return f.freshPairing }

func (f *fakeAgent) Rehydrate(context.Context) error {
	f.rehydrated = true
	return nil
}

func (f *fakeAgent) Leave(context.Context) error {
	f.left = true
	return nil
}

func TestEvaluateStartFreshWithoutState(t *testing.T) {
	if got := NewManager(&fakeAgent{}).Evaluate(); got != StartFresh {
		t.Fatalf("expected start fresh, got %s", got)
	}
}

func TestEvaluatePreexistingSessionIsAmbiguous(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	agent := &fakeAgent{
		self:    &couple.Partner{ID: "a"},
		session: &couple.Session{ID: "s1", Status: couple.StatusActive, UpdatedAt: now},
	}
	if got := NewManager(agent).Evaluate(); got != Ambiguous {
		t.Fatalf("state from an earlier run must prompt, got %s", got)
	}
}

func TestEvaluateFreshPairingBypassesPrompt(t *testing.T) {
	agent := &fakeAgent{
		self:         &couple.Partner{ID: "a"},
		session:      &couple.Session{ID: "s1", Status: couple.StatusActive},
		freshPairing: true,
	}
	if got := NewManager(agent).Evaluate(); got != Resume {
		t.Fatalf("fresh pairing must resume without a prompt, got %s", got)
	}
}

func TestEvaluateStartFreshWhenCompleted(t *testing.T) {
	agent := &fakeAgent{
		self:    &couple.Partner{ID: "a"},
		session: &couple.Session{ID: "s1", Status: couple.StatusCompleted},
	}
	if got := NewManager(agent).Evaluate(); got != StartFresh {
		t.Fatalf("completed session must start fresh, got %s", got)
	}
}

func TestContinueAndRestart(t *testing.T) {
	agent := &fakeAgent{}
	m := NewManager(agent)
	if err := m.Continue(context.Background()); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if !agent.rehydrated {
		t.Fatalf("continue must rehydrate")
	}
	if err := m.TerminateAndRestart(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !agent.left {
		t.Fatalf("restart must clear state via leave")
	}
}
