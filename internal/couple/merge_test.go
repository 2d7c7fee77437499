package couple

import (
	"testing"
	"time"
)

func baseTime() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func TestMergeSessionUnionsLogs(t *testing.T) {
	local := &Session{
		ID:       "s1",
		CoupleID: "love_1699999999",
		Canvas:   []Stroke{{ID: "a", AuthorID: "alice"}},
		Notes:    []Note{{ID: "n1", Content: "Ti amo"}},
		Messages: []Message{{ID: "m1"}},
		Status:   StatusActive,
	}
	remote := &Session{
		ID:       "s1",
		CoupleID: "love_1699999999",
		Canvas:   []Stroke{{ID: "a", AuthorID: "alice"}, {ID: "b", AuthorID: "bob"}},
		Notes:    []Note{{ID: "n1", Content: "Ti amo"}, {ID: "n2"}},
		Messages: []Message{{ID: "m2"}},
		Status:   StatusActive,
	}

	merged := MergeSession(local, remote)
	if len(merged.Canvas) != 2 {
		t.Fatalf("expected 2 strokes, got %d", len(merged.Canvas))
	}
	if len(merged.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(merged.Notes))
	}
	if len(merged.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(merged.Messages))
	}

	again := MergeSession(merged, remote)
	if len(again.Canvas) != 2 || len(again.Notes) != 2 || len(again.Messages) != 2 {
		t.Fatalf("merge is not idempotent: %d/%d/%d", len(again.Canvas), len(again.Notes), len(again.Messages))
	}
}

func TestMergeSessionScalarLastWriterWins(t *testing.T) {
	now := baseTime()
	card := &Card{ID: "c1", Text: "What made you smile today?"}
	local := &Session{ID: "s1", Status: StatusWaiting, UpdatedAt: now}
	remote := &Session{ID: "s1", Status: StatusActive, CurrentCard: card, UpdatedAt: now.Add(time.Second)}

	merged := MergeSession(local, remote)
	if merged.Status != StatusActive {
		t.Fatalf("expected remote status to win, got %s", merged.Status)
	}
	if merged.CurrentCard == nil || merged.CurrentCard.ID != "c1" {
		t.Fatalf("expected remote card to win")
	}

	stale := &Session{ID: "s1", Status: StatusCompleted, UpdatedAt: now.Add(-time.Minute)}
	merged = MergeSession(merged, stale)
	if merged.Status != StatusActive {
		t.Fatalf("stale writer must not win, got %s", merged.Status)
	}
}

func TestMergeSessionClearSurvivesUnion(t *testing.T) {
	cleared := &Session{ID: "s1", CanvasEpoch: 1}
	stale := &Session{ID: "s1", CanvasEpoch: 0, Canvas: []Stroke{{ID: "old"}}}

	merged := MergeSession(cleared, stale)
	if len(merged.Canvas) != 0 {
		t.Fatalf("cleared canvas resurrected: %d strokes", len(merged.Canvas))
	}

	merged = MergeSession(stale, cleared)
	if len(merged.Canvas) != 0 || merged.CanvasEpoch != 1 {
		t.Fatalf("clear lost in reverse merge: %d strokes epoch=%d", len(merged.Canvas), merged.CanvasEpoch)
	}
}

func TestMergeCoupleUpsertsMembers(t *testing.T) {
	now := baseTime()
	local := &Couple{
		ID:      "love_1699999999",
		Members: []Member{{ID: "a", Name: "Alice", Role: RolePartnerOne, LastSeen: now}},
	}
	remote := &Couple{
		ID: "love_1699999999",
		Members: []Member{
			{ID: "a", Name: "Alice", Role: RolePartnerOne, LastSeen: now.Add(time.Second)},
			{ID: "b", Name: "Bob", Role: RolePartnerTwo, LastSeen: now},
		},
	}

	merged := MergeCouple(local, remote)
	if len(merged.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(merged.Members))
	}
	if !merged.Members[0].LastSeen.Equal(now.Add(time.Second)) {
		t.Fatalf("fresher last-seen must win")
	}

	again := MergeCouple(merged, remote)
	if len(again.Members) != 2 {
		t.Fatalf("upsert is not idempotent: %d members", len(again.Members))
	}
}

func TestMergeCoupleNeverExceedsTwoMembers(t *testing.T) {
	now := baseTime()
	local := &Couple{ID: "c", Members: []Member{
		{ID: "a", LastSeen: now},
		{ID: "b", LastSeen: now},
	}}
	remote := &Couple{ID: "c", Members: []Member{{ID: "z", Name: "Zed", LastSeen: now}}}

	merged := MergeCouple(local, remote)
	if len(merged.Members) != 2 {
		t.Fatalf("membership exceeded two: %d", len(merged.Members))
	}
	for _, member := range merged.Members {
		if member.ID == "z" {
			t.Fatalf("third member admitted")
		}
	}
}

func TestMergeCoupleRemovalSurvivesUpsert(t *testing.T) {
	now := baseTime()
	trimmed := &Couple{ID: "c", MembershipVersion: 1, Members: []Member{{ID: "a", LastSeen: now}}}
	stale := &Couple{ID: "c", MembershipVersion: 0, Members: []Member{
		{ID: "a", LastSeen: now},
		{ID: "b", LastSeen: now},
	}}

	merged := MergeCouple(trimmed, stale)
	if len(merged.Members) != 1 {
		t.Fatalf("removed member resurrected: %d members", len(merged.Members))
	}

	merged = MergeCouple(stale, trimmed)
	if len(merged.Members) != 1 || merged.MembershipVersion != 1 {
		t.Fatalf("removal lost in reverse merge: %d members version=%d", len(merged.Members), merged.MembershipVersion)
	}
}

func TestStateForThresholdBoundary(t *testing.T) {
	now := baseTime()
	threshold := 5 * time.Minute
	pair := &Couple{ID: "c", Members: []Member{
		{ID: "a", LastSeen: now},
		{ID: "b", LastSeen: now.Add(-threshold)},
	}}

	// Exactly at the threshold counts as offline.
	if got := StateFor(pair, now, threshold); got != StatePaired {
		t.Fatalf("expected paired at boundary, got %s", got)
	}

	pair.Members[1].LastSeen = now.Add(-threshold + time.Second)
	if got := StateFor(pair, now, threshold); got != StateActive {
		t.Fatalf("expected active inside threshold, got %s", got)
	}

	pair.Members[1].Offline = true
	if got := StateFor(pair, now, threshold); got != StatePaired {
		t.Fatalf("offline hint must demote to paired, got %s", got)
	}
}

func TestStateForLifecycle(t *testing.T) {
	now := baseTime()
	threshold := 5 * time.Minute
	if got := StateFor(nil, now, threshold); got != StateUnpaired {
		t.Fatalf("expected unpaired, got %s", got)
	}
	solo := &Couple{ID: "c", Members: []Member{{ID: "a", LastSeen: now}}}
	if got := StateFor(solo, now, threshold); got != StateAwaitingPartner {
		t.Fatalf("expected awaiting partner, got %s", got)
	}
}

func TestRosterRegistryThreshold(t *testing.T) {
	now := baseTime()
	threshold := 30 * time.Second
	pair := &Couple{ID: "c", Members: []Member{
		{ID: "a", Name: "Alice", LastSeen: now.Add(-threshold + time.Second)},
		{ID: "b", Name: "Bob", LastSeen: now.Add(-threshold)},
	}}

	entries := Roster(pair, now, threshold)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Online {
		t.Fatalf("member seen inside the registry threshold must list online")
	}
	// Exactly at the threshold counts as stale.
	if entries[1].Online {
		t.Fatalf("member at the registry threshold must list offline")
	}

	pair.Members[0].Offline = true
	entries = Roster(pair, now, threshold)
	if entries[0].Online {
		t.Fatalf("offline hint must override a fresh last-seen")
	}

	if Roster(nil, now, threshold) != nil {
		t.Fatalf("nil couple must produce an empty roster")
	}
}
