package bridge

import (
	"encoding/json"
	"fmt"

	"couple-cards/internal/couple"
	"couple-cards/internal/hub"
	"couple-cards/internal/storage"
)

func coupleKey(id string) string  { return "couple:" + id }
func sessionKey(id string) string { return "session:" + id }

type lookupRequest struct {
	CoupleID string `json:"couple_id"`
}

// localProcedures executes hub procedures against the shared storage
// namespace. Both local variants use it: without a remote backend the
// origin is the source of truth. Writes union into the stored record
// rather than overwriting it, so concurrent peers cannot drop appends.
type localProcedures struct {
	store *storage.Adapter
}

func newLocalProcedures(store *storage.Adapter) localProcedures {
	return localProcedures{store: store.WithProfile(storage.SharedProfile)}
}

func (p localProcedures) invoke(procedure string, payload json.RawMessage) (json.RawMessage, error) {
	switch procedure {
	case hub.ProcGetCouple:
		return p.getCouple(payload)
	case hub.ProcGetSession:
		return p.getSession(payload)
	case hub.ProcJoinSession, hub.ProcUpdateCouple, hub.ProcAnnouncePresence:
		return p.writeCouple(payload)
	case hub.ProcCreateSession, hub.ProcUpdateSession, hub.ProcUpdateCanvas,
		hub.ProcSendMessage, hub.ProcEndSession:
		return p.writeSession(payload)
	}
	return nil, fmt.Errorf("unknown procedure %q", procedure)
}

func (p localProcedures) getCouple(payload json.RawMessage) (json.RawMessage, error) {
	var req lookupRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	var record couple.Couple
	ok, err := p.store.ReadJSON(coupleKey(req.CoupleID), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(record)
}

func (p localProcedures) getSession(payload json.RawMessage) (json.RawMessage, error) {
	var req lookupRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	var record couple.Session
	ok, err := p.store.ReadJSON(sessionKey(req.CoupleID), &record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(record)
}

func (p localProcedures) writeCouple(payload json.RawMessage) (json.RawMessage, error) {
	var incoming couple.Couple
	if err := json.Unmarshal(payload, &incoming); err != nil {
		return nil, err
	}
	if incoming.ID == "" {
		return nil, fmt.Errorf("couple id is required")
	}
	var existing couple.Couple
	ok, err := p.store.ReadJSON(coupleKey(incoming.ID), &existing)
	if err != nil {
		return nil, err
	}
	merged := &incoming
	if ok {
		merged = couple.MergeCouple(&existing, &incoming)
	}
	if err := p.store.WriteJSON(coupleKey(incoming.ID), merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func (p localProcedures) writeSession(payload json.RawMessage) (json.RawMessage, error) {
	var incoming couple.Session
	if err := json.Unmarshal(payload, &incoming); err != nil {
		return nil, err
	}
	if incoming.CoupleID == "" {
		return nil, fmt.Errorf("session couple id is required")
	}
	var existing couple.Session
	ok, err := p.store.ReadJSON(sessionKey(incoming.CoupleID), &existing)
	if err != nil {
		return nil, err
	}
	merged := &incoming
	if ok && existing.ID == incoming.ID {
		merged = couple.MergeSession(&existing, &incoming)
	}
	if err := p.store.WriteJSON(sessionKey(incoming.CoupleID), merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}
