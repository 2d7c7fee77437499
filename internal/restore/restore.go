// Package restore decides what happens to a previously persisted session
// when the agent starts up again.
package restore

import (
	"context"

	"couple-cards/internal/couple"
)

type Decision string

const (
	// Resume continues the stored session without asking.
	Resume Decision = "resume"
	// StartFresh discards nothing; there is simply no session to restore.
	StartFresh Decision = "start_fresh"
	// Ambiguous means the stored session predates this process and only
	// the user can say whether it is still wanted.
	Ambiguous Decision = "ambiguous"
)

// Agent is the slice of the reconciler the restore decision needs.
type Agent interface {
	Self() *couple.Partner
	Session() *couple.Session
	FreshPairing() bool
	Rehydrate(ctx context.Context) error
	Leave(ctx context.Context) error
}

type Manager struct {
	agent Agent
}

func NewManager(agent Agent) *Manager {
	return &Manager{agent: agent}
}

// Evaluate inspects the persisted identity and session and picks a path.
// A pairing completed inside this very process is never ambiguous: the
// handshake just happened, so the session resumes silently. Anything found
// on disk from an earlier run is ambiguous; only the user knows whether it
// is still wanted.
func (m *Manager) Evaluate() Decision {
	if m.agent.FreshPairing() {
		return Resume
	}
	self := m.agent.Self()
	session := m.agent.Session()
	if self == nil || session == nil {
		return StartFresh
	}
	if session.Status == couple.StatusCompleted {
		return StartFresh
	}
	return Ambiguous
}

// Continue resumes the stored session, pulling authoritative state first.
func (m *Manager) Continue(ctx context.Context) error {
	return m.agent.Rehydrate(ctx)
}

// TerminateAndRestart abandons the stored session and clears local state
// so the next authentication starts from nothing.
func (m *Manager) TerminateAndRestart(ctx context.Context) error {
	return m.agent.Leave(ctx)
}
