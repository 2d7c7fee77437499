package couple

import (
	"time"

	"couple-cards/internal/presence"
)

type record interface {
	RecordID() string
}

// unionByID appends entries of remote not already present in local, keyed by
// record id. Local entries are never dropped or reordered, so a race between
// a local append and a remote delivery loses nothing.
func unionByID[T record](local, remote []T) []T {
	seen := make(map[string]struct{}, len(local))
	for _, entry := range local {
		seen[entry.RecordID()] = struct{}{}
	}
	merged := local
	for _, entry := range remote {
		if _, ok := seen[entry.RecordID()]; ok {
			continue
		}
		seen[entry.RecordID()] = struct{}{}
		merged = append(merged, entry)
	}
	return merged
}

// MergeSession unions the remote session's append-only logs into local.
// Scalar fields are last-writer-wins at whole-record granularity: the copy
// with the later UpdatedAt supplies card, history and status.
func MergeSession(local, remote *Session) *Session {
	if local == nil {
		clone := *remote
		return &clone
	}
	if remote == nil {
		return local
	}
	merged := *local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		merged.CurrentCard = remote.CurrentCard
		merged.Status = remote.Status
		merged.UpdatedAt = remote.UpdatedAt
		if len(remote.History) >= len(local.History) {
			merged.History = remote.History
		}
	}
	switch {
	case remote.CanvasEpoch > local.CanvasEpoch:
		merged.CanvasEpoch = remote.CanvasEpoch
		merged.Canvas = remote.Canvas
	case remote.CanvasEpoch < local.CanvasEpoch:
		// Keep the local (cleared) canvas.
	default:
		merged.Canvas = unionByID(local.Canvas, remote.Canvas)
	}
	merged.Notes = unionByID(local.Notes, remote.Notes)
	merged.Messages = unionByID(local.Messages, remote.Messages)
	return &merged
}

// MergeCouple upserts remote members into local by id, keeping the freshest
// last-seen per member. Membership never exceeds two.
func MergeCouple(local, remote *Couple) *Couple {
	if local == nil {
		clone := *remote
		return &clone
	}
	if remote == nil {
		return local
	}
	merged := *local
	if remote.LastActivity.After(local.LastActivity) {
		merged.LastActivity = remote.LastActivity
		merged.Settings = remote.Settings
		if remote.Name != "" {
			merged.Name = remote.Name
		}
	}
	switch {
	case remote.MembershipVersion > local.MembershipVersion:
		merged.MembershipVersion = remote.MembershipVersion
		members := make([]Member, len(remote.Members))
		copy(members, remote.Members)
		merged.Members = members
	case remote.MembershipVersion < local.MembershipVersion:
		// Keep the local member list; the removal is newer.
	default:
		members := make([]Member, len(local.Members))
		copy(members, local.Members)
		merged.Members = members
		for _, entry := range remote.Members {
			upsertMember(&merged, entry)
		}
	}
	return &merged
}

func upsertMember(c *Couple, entry Member) {
	if existing := c.member(entry.ID); existing != nil {
		if entry.LastSeen.After(existing.LastSeen) {
			existing.LastSeen = entry.LastSeen
			existing.Offline = entry.Offline
		}
		if entry.Name != "" {
			existing.Name = entry.Name
		}
		if entry.Role != "" {
			existing.Role = entry.Role
		}
		return
	}
	if len(c.Members) >= 2 {
		return
	}
	c.Members = append(c.Members, entry)
}

// StateFor derives the couple lifecycle state. A member is online when its
// last-seen age is strictly within the threshold.
func StateFor(c *Couple, now time.Time, partnerThreshold time.Duration) State {
	if c == nil {
		return StateUnpaired
	}
	if len(c.Members) < 2 {
		return StateAwaitingPartner
	}
	bothOnline := true
	for _, entry := range c.Members {
		if entry.Offline || presence.Stale(entry.LastSeen, now, partnerThreshold) {
			bothOnline = false
			break
		}
	}
	if bothOnline {
		return StateActive
	}
	return StatePaired
}

// RosterEntry is the registry view of one member. The registry threshold is
// much shorter than the partner-liveness rule: a listing wants "seen just
// now", not "still worth syncing with".
type RosterEntry struct {
	Member Member `json:"member"`
	Online bool   `json:"online"`
}

// Roster classifies every member of the couple against the registry
// staleness threshold.
func Roster(c *Couple, now time.Time, registryThreshold time.Duration) []RosterEntry {
	if c == nil {
		return nil
	}
	entries := make([]RosterEntry, 0, len(c.Members))
	for _, member := range c.Members {
		entries = append(entries, RosterEntry{
			Member: member,
			Online: !member.Offline && !presence.Stale(member.LastSeen, now, registryThreshold),
		})
	}
	return entries
}
