package couple_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"couple-cards/internal/bridge"
	"couple-cards/internal/config"
	"couple-cards/internal/couple"
	"couple-cards/internal/storage"
)

type fixture struct {
	store   *storage.Memory
	channel *bridge.MemoryChannel
}

func newFixture() *fixture {
	return &fixture{
		store:   storage.NewMemory(),
		channel: bridge.NewMemoryChannel(),
	}
}

// newAgent builds one sync agent peer on the shared origin, the way two
// browser profiles share one machine.
func (f *fixture) newAgent(t *testing.T, profile string) *couple.Reconciler {
	t.Helper()
	adapter := storage.NewAdapter(f.store, profile)
	b := bridge.NewBroadcast(adapter, f.channel)
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("bridge connect: %v", err)
	}
	t.Cleanup(b.Disconnect)
	return couple.NewReconciler(b, adapter, nil, config.Default())
}

func authenticate(t *testing.T, agent *couple.Reconciler, name, partnerName string) *couple.Partner {
	t.Helper()
	self, err := agent.Authenticate(context.Background(), couple.AuthInput{
		Name:        name,
		CoupleID:    "love_1699999999",
		PartnerName: partnerName,
	})
	if err != nil {
		t.Fatalf("authenticate %s: %v", name, err)
	}
	return self
}

func waitFor(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPairingFlow(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")

	self := authenticate(t, alice, "Alice", "Bob")
	if self.Role != couple.RolePartnerOne {
		t.Fatalf("first partner should be %s, got %s", couple.RolePartnerOne, self.Role)
	}
	if alice.State() != couple.StateAwaitingPartner {
		t.Fatalf("expected awaiting partner, got %s", alice.State())
	}

	partner := authenticate(t, bob, "Bob", "Alice")
	if partner.Role != couple.RolePartnerTwo {
		t.Fatalf("second partner should be %s, got %s", couple.RolePartnerTwo, partner.Role)
	}

	waitFor(t, "alice to see bob", func() bool {
		pair := alice.Couple()
		return pair != nil && len(pair.Members) == 2
	})
	if alice.State() != couple.StateActive {
		t.Fatalf("expected active with both partners fresh, got %s", alice.State())
	}
	if !alice.FreshPairing() {
		t.Fatalf("pairing completed in-process must set the fresh-pairing flag")
	}
}

func TestSessionActivatesForBothPartners(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")

	authenticate(t, alice, "Alice", "Bob")
	if got := alice.Session().Status; got != couple.StatusWaiting {
		t.Fatalf("solo session should wait, got %s", got)
	}

	authenticate(t, bob, "Bob", "Alice")
	// The joiner promotes the session and republishes it, so the waiting
	// peer sees active without writing anything itself.
	for name, agent := range map[string]*couple.Reconciler{"alice": alice, "bob": bob} {
		waitFor(t, name+" to see the active session", func() bool {
			s := agent.Session()
			return s != nil && s.Status == couple.StatusActive
		})
	}
}

func TestRejoinKeepsIdentity(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")

	first := authenticate(t, alice, "Alice", "Bob")
	second := authenticate(t, alice, "Alice", "Bob")
	if first.ID != second.ID {
		t.Fatalf("partner id changed on rejoin: %s vs %s", first.ID, second.ID)
	}
	pair := alice.Couple()
	if pair == nil || len(pair.Members) != 1 {
		t.Fatalf("rejoin must not duplicate membership: %+v", pair)
	}
}

func TestThirdPartnerRejected(t *testing.T) {
	f := newFixture()
	authenticate(t, f.newAgent(t, "alice"), "Alice", "Bob")
	authenticate(t, f.newAgent(t, "bob"), "Bob", "Alice")

	carol := f.newAgent(t, "carol")
	_, err := carol.Authenticate(context.Background(), couple.AuthInput{
		Name:        "Carol",
		CoupleID:    "love_1699999999",
		PartnerName: "Alice",
	})
	if !errors.Is(err, couple.ErrCoupleFull) {
		t.Fatalf("expected ErrCoupleFull, got %v", err)
	}
}

func TestDrawCardStampsDrawer(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")
	self := authenticate(t, alice, "Alice", "Bob")
	authenticate(t, bob, "Bob", "Alice")

	err := alice.DrawCard(context.Background(), couple.Card{
		Text:     "What made you smile today?",
		Category: "conversation",
	})
	if err != nil {
		t.Fatalf("draw card: %v", err)
	}

	session := alice.Session()
	if session.CurrentCard == nil || session.CurrentCard.DrawnByID != self.ID {
		t.Fatalf("card not stamped with drawer: %+v", session.CurrentCard)
	}
	if session.CurrentCard.DrawnByName != "Alice" {
		t.Fatalf("card drawer name wrong: %s", session.CurrentCard.DrawnByName)
	}
	if len(session.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(session.History))
	}

	waitFor(t, "bob to see the card", func() bool {
		s := bob.Session()
		return s != nil && s.CurrentCard != nil && s.CurrentCard.ID == session.CurrentCard.ID
	})
}

func TestNoteCarriesAuthor(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")
	self := authenticate(t, alice, "Alice", "Bob")
	authenticate(t, bob, "Bob", "Alice")

	if err := alice.AppendNote(context.Background(), "Ti amo", false); err != nil {
		t.Fatalf("append note: %v", err)
	}

	waitFor(t, "bob to see the note", func() bool {
		s := bob.Session()
		return s != nil && len(s.Notes) == 1
	})
	note := bob.Session().Notes[0]
	if note.Content != "Ti amo" || note.AuthorID != self.ID {
		t.Fatalf("note lost its author: %+v", note)
	}
}

func TestConcurrentStrokesBothSurvive(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")
	authenticate(t, alice, "Alice", "Bob")
	authenticate(t, bob, "Bob", "Alice")

	stroke := func(agent *couple.Reconciler) {
		if err := agent.AppendStroke(context.Background(), couple.Stroke{
			Points: []couple.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		}); err != nil {
			t.Errorf("append stroke: %v", err)
		}
	}
	stroke(alice)
	stroke(bob)

	for name, agent := range map[string]*couple.Reconciler{"alice": alice, "bob": bob} {
		waitFor(t, name+" to see both strokes", func() bool {
			s := agent.Session()
			return s != nil && len(s.Canvas) == 2
		})
	}
}

func TestClearCanvasPropagates(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")
	authenticate(t, alice, "Alice", "Bob")
	authenticate(t, bob, "Bob", "Alice")

	if err := bob.AppendStroke(context.Background(), couple.Stroke{
		Points: []couple.Point{{X: 1, Y: 1}},
	}); err != nil {
		t.Fatalf("append stroke: %v", err)
	}
	waitFor(t, "alice to see the stroke", func() bool {
		s := alice.Session()
		return s != nil && len(s.Canvas) == 1
	})

	if err := alice.ClearCanvas(context.Background()); err != nil {
		t.Fatalf("clear canvas: %v", err)
	}
	if len(alice.Session().Canvas) != 0 {
		t.Fatalf("canvas not cleared locally")
	}
	waitFor(t, "bob to see the cleared canvas", func() bool {
		s := bob.Session()
		return s != nil && len(s.Canvas) == 0 && s.CanvasEpoch == 1
	})
}

func TestLeaveClearsStateAndMembership(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")
	authenticate(t, alice, "Alice", "Bob")
	authenticate(t, bob, "Bob", "Alice")
	waitFor(t, "pairing to settle", func() bool {
		pair := alice.Couple()
		return pair != nil && len(pair.Members) == 2
	})

	if err := bob.Leave(context.Background()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if bob.Self() != nil || bob.State() != couple.StateUnpaired {
		t.Fatalf("leave must clear local identity")
	}
	// Leaving twice is a no-op.
	if err := bob.Leave(context.Background()); err != nil {
		t.Fatalf("second leave: %v", err)
	}

	waitFor(t, "alice to see the departure", func() bool {
		pair := alice.Couple()
		return pair != nil && len(pair.Members) == 1
	})
	if alice.State() != couple.StateAwaitingPartner {
		t.Fatalf("expected awaiting partner after departure, got %s", alice.State())
	}
}

func TestOfflineHintHidesPartner(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	bob := f.newAgent(t, "bob")
	authenticate(t, alice, "Alice", "Bob")
	authenticate(t, bob, "Bob", "Alice")
	waitFor(t, "pairing to settle", func() bool {
		pair := alice.Couple()
		return pair != nil && len(pair.Members) == 2
	})
	waitFor(t, "partner to be connected", func() bool {
		return alice.ConnectedPartner() != nil
	})

	if err := bob.MarkOffline(context.Background()); err != nil {
		t.Fatalf("mark offline: %v", err)
	}
	waitFor(t, "offline hint to land", func() bool {
		return alice.ConnectedPartner() == nil
	})
}

func TestDisabledFeaturesRejected(t *testing.T) {
	f := newFixture()
	alice := f.newAgent(t, "alice")
	authenticate(t, alice, "Alice", "Bob")

	settings := alice.Couple().Settings
	settings.AllowDrawing = false
	settings.AllowNotes = false
	if err := alice.UpdateSettings(context.Background(), settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	err := alice.AppendStroke(context.Background(), couple.Stroke{
		Points: []couple.Point{{X: 0, Y: 0}},
	})
	if !errors.Is(err, couple.ErrDrawingDisabled) {
		t.Fatalf("expected ErrDrawingDisabled, got %v", err)
	}
	if err := alice.AppendNote(context.Background(), "hi", false); !errors.Is(err, couple.ErrNotesDisabled) {
		t.Fatalf("expected ErrNotesDisabled, got %v", err)
	}
}
