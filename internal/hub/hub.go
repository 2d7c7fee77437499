// Package hub defines the transport-agnostic contract between the
// reconciler and the real-time event bridge variants, plus the procedure
// and push-event names of the remote game hub.
package hub

import (
	"context"
	"encoding/json"
	"errors"
)

// Mode is the transport strategy chosen by capability detection.
type Mode string

const (
	ModeRemote    Mode = "remote-backend"
	ModeBroadcast Mode = "simulated-broadcast"
	ModeStorage   Mode = "storage-fallback"
)

func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeRemote, ModeBroadcast, ModeStorage:
		return Mode(raw), true
	}
	return "", false
}

var (
	ErrNotConnected = errors.New("bridge not connected")
	ErrReconnecting = errors.New("bridge reconnecting")
)

// Handler receives one pushed event payload.
type Handler func(payload json.RawMessage)

// Subscription identifies a registered handler for removal via Off.
type Subscription int

// Bridge is the single facade over the three transport variants.
type Bridge interface {
	Connect(ctx context.Context) error
	Disconnect()
	Invoke(ctx context.Context, procedure string, payload any) (json.RawMessage, error)
	On(event string, handler Handler) Subscription
	Off(event string, sub Subscription)
	Emit(event string, payload any)
}

// Remote procedures.
const (
	ProcCreateSession    = "CreateSharedSession"
	ProcJoinSession      = "JoinSharedSession"
	ProcGetCouple        = "GetCouple"
	ProcGetSession       = "GetSharedSession"
	ProcUpdateCouple     = "UpdateCouple"
	ProcUpdateSession    = "UpdateSharedSession"
	ProcUpdateCanvas     = "UpdateSharedCanvas"
	ProcSendMessage      = "SendSharedSessionMessage"
	ProcEndSession       = "EndSharedSession"
	ProcAnnouncePresence = "AnnouncePresence"
)

// Push events.
const (
	EventReconnected     = "reconnected"
	EventCoupleUpdated   = "CoupleUpdated"
	EventSessionCreated  = "SharedSessionCreated"
	EventSessionJoined   = "SharedSessionJoined"
	EventSessionLeft     = "SharedSessionLeft"
	EventSessionUpdated  = "SharedSessionUpdated"
	EventCanvasUpdated   = "SharedCanvasUpdated"
	EventSessionMessage  = "SharedSessionMessage"
	EventSessionEnded    = "SharedSessionEnded"
	EventSessionError    = "SharedSessionError"
	EventPresenceUpdated = "PresenceUpdated"
)

// EventForProcedure maps a procedure to the push event peers receive when a
// local variant simulates it.
func EventForProcedure(procedure string) (string, bool) {
	switch procedure {
	case ProcCreateSession:
		return EventSessionCreated, true
	case ProcJoinSession:
		return EventSessionJoined, true
	case ProcUpdateCouple:
		return EventCoupleUpdated, true
	case ProcUpdateSession:
		return EventSessionUpdated, true
	case ProcUpdateCanvas:
		return EventCanvasUpdated, true
	case ProcSendMessage:
		return EventSessionMessage, true
	case ProcEndSession:
		return EventSessionEnded, true
	case ProcAnnouncePresence:
		return EventPresenceUpdated, true
	}
	return "", false
}
