package couple

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"couple-cards/internal/config"
	"couple-cards/internal/hub"
	"couple-cards/internal/presence"
	"couple-cards/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoSession        = errors.New("no active session")
	ErrCoupleFull       = errors.New("couple already has two partners")
	ErrDrawingDisabled  = errors.New("drawing is disabled for this couple")
	ErrNotesDisabled    = errors.New("notes are disabled for this couple")
)

type lookupRequest struct {
	CoupleID string `json:"couple_id"`
}

// Reconciler owns the authoritative merge of local optimistic state with
// transport-delivered state for the Couple and Session entities. All writes
// are whole-record replacements; all log merges union by record id.
type Reconciler struct {
	bridge hub.Bridge
	store  *storage.Adapter
	conn   *gorm.DB
	cfg    config.Config
	now    func() time.Time

	mu           sync.Mutex
	self         *Partner
	couple       *Couple
	session      *Session
	freshPairing bool
	subs         []subscription
}

type subscription struct {
	event string
	sub   hub.Subscription
}

// NewReconciler wires the reconciler to a bridge and the profile-scoped
// persistence adapter. conn may be nil; the event trail is then skipped.
func NewReconciler(b hub.Bridge, store *storage.Adapter, conn *gorm.DB, cfg config.Config) *Reconciler {
	r := &Reconciler{
		bridge: b,
		store:  store,
		conn:   conn,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	r.loadSnapshots()
	r.subscribe()
	return r
}

func (r *Reconciler) partnerThreshold() time.Duration {
	return time.Duration(r.cfg.PartnerStaleSeconds) * time.Second
}

func (r *Reconciler) registryThreshold() time.Duration {
	return time.Duration(r.cfg.RegistryStaleSeconds) * time.Second
}

func (r *Reconciler) loadSnapshots() {
	var self Partner
	if ok, err := r.store.ReadJSON(storage.KeyPartner, &self); err == nil && ok {
		r.self = &self
	}
	var pair Couple
	if ok, err := r.store.ReadJSON(storage.KeyCouple, &pair); err == nil && ok {
		r.couple = &pair
	}
	var session Session
	if ok, err := r.store.ReadJSON(storage.KeySession, &session); err == nil && ok {
		r.session = &session
	}
}

func (r *Reconciler) subscribe() {
	register := func(event string, handler hub.Handler) {
		r.subs = append(r.subs, subscription{event: event, sub: r.bridge.On(event, handler)})
	}
	register(hub.EventCoupleUpdated, r.onCoupleUpdated)
	register(hub.EventSessionJoined, r.onCoupleUpdated)
	register(hub.EventPresenceUpdated, r.onCoupleUpdated)
	register(hub.EventSessionCreated, r.onSessionUpdated)
	register(hub.EventSessionUpdated, r.onSessionUpdated)
	register(hub.EventCanvasUpdated, r.onSessionUpdated)
	register(hub.EventSessionMessage, r.onSessionUpdated)
	register(hub.EventSessionEnded, r.onSessionEnded)
	register(hub.EventReconnected, r.onReconnected)
}

func (r *Reconciler) unsubscribe() {
	for _, entry := range r.subs {
		r.bridge.Off(entry.event, entry.sub)
	}
	r.subs = nil
}

// Authenticate validates the login input, establishes the Partner identity
// and joins (or creates) the couple. An identity persisted by a previous
// run of the same profile is reused so the partner id stays immutable.
func (r *Reconciler) Authenticate(ctx context.Context, input AuthInput) (*Partner, error) {
	validated, err := validateAuthInput(input)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	self := r.self
	if self == nil || self.Name != validated.Name || self.JoinCode != validated.CoupleID {
		self = &Partner{
			ID:       uuid.New().String(),
			Name:     validated.Name,
			JoinCode: validated.CoupleID,
		}
	}
	self.PartnerName = validated.PartnerName
	self.DeviceID = validated.DeviceID
	self.LastSeen = r.now()
	if validated.DrawingColor != "" {
		if self.Preferences == nil {
			self.Preferences = make(map[string]string)
		}
		self.Preferences["drawing_color"] = validated.DrawingColor
	}
	r.self = self
	// Leave drops the bridge subscriptions; a re-login needs them back.
	if len(r.subs) == 0 {
		r.subscribe()
	}
	if err := r.store.WriteJSON(storage.KeyPartner, self); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("persist partner: %w", err)
	}
	r.mu.Unlock()

	if _, err := r.CreateOrJoin(ctx, validated.CoupleID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return clonePartner(r.self), nil
}

// CreateOrJoin looks up the couple by identifier and merges the current
// partner into its membership, or creates it with the partner as sole
// member. Rejoining is an idempotent no-op that refreshes last-seen.
func (r *Reconciler) CreateOrJoin(ctx context.Context, coupleID string) (*Couple, error) {
	code, err := NormalizeJoinCode(coupleID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	self := r.self
	r.mu.Unlock()
	if self == nil {
		return nil, ErrNotAuthenticated
	}

	existing, err := r.fetchCouple(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("couple lookup: %w", err)
	}

	now := r.now()
	var (
		pair      *Couple
		procedure string
		eventType string
	)
	if existing == nil {
		pair = &Couple{
			ID:           code,
			CreatedAt:    now,
			LastActivity: now,
			Members: []Member{{
				ID:       self.ID,
				Name:     self.Name,
				Role:     RolePartnerOne,
				LastSeen: now,
			}},
			Settings: defaultSettings(),
		}
		procedure = hub.ProcUpdateCouple
		eventType = "couple_created"
	} else {
		pair = existing
		member := pair.member(self.ID)
		if member == nil && len(pair.Members) >= 2 {
			return nil, ErrCoupleFull
		}
		role := RolePartnerOne
		for _, entry := range pair.Members {
			if entry.ID != self.ID && entry.Role == RolePartnerOne {
				role = RolePartnerTwo
			}
		}
		upsertMember(pair, Member{
			ID:       self.ID,
			Name:     self.Name,
			Role:     role,
			LastSeen: now,
		})
		pair.LastActivity = now
		procedure = hub.ProcJoinSession
		eventType = "couple_joined"
	}

	r.mu.Lock()
	priorMembers := 0
	if r.couple != nil && r.couple.ID == code {
		priorMembers = len(r.couple.Members)
	}
	self.Role = roleOf(pair, self.ID)
	r.self.Role = self.Role
	r.mu.Unlock()

	authoritative, err := r.publishCouple(ctx, procedure, pair)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.couple = authoritative
	if priorMembers < 2 && len(authoritative.Members) == 2 {
		r.freshPairing = true
	}
	if err := r.store.WriteJSON(storage.KeyCouple, authoritative); err != nil {
		log.Printf("reconciler: couple snapshot write failed: %v", err)
	}
	if err := r.store.WriteJSON(storage.KeyPartner, r.self); err != nil {
		log.Printf("reconciler: partner snapshot write failed: %v", err)
	}
	result := cloneCouple(authoritative)
	r.mu.Unlock()

	if err := r.ensureSession(ctx, code); err != nil {
		return nil, err
	}
	r.recordEvent(eventType, map[string]any{
		"couple_id": code,
		"member":    self.Name,
	})
	return result, nil
}

// ensureSession fetches the couple's session or creates the initial one.
func (r *Reconciler) ensureSession(ctx context.Context, coupleID string) error {
	existing, err := r.fetchSession(ctx, coupleID)
	if err != nil {
		return fmt.Errorf("session lookup: %w", err)
	}
	if existing == nil {
		now := r.now()
		existing = &Session{
			ID:        uuid.New().String(),
			CoupleID:  coupleID,
			Status:    StatusWaiting,
			CreatedAt: now,
			UpdatedAt: now,
		}
		applied, err := r.publishSession(ctx, hub.ProcCreateSession, existing)
		if err != nil {
			return err
		}
		existing = applied
	}
	r.mu.Lock()
	promote := r.couple != nil && len(r.couple.Members) == 2 && existing.Status == StatusWaiting
	r.mu.Unlock()
	if promote {
		// The peer reads the stored record; the promotion has to land there,
		// not just in local state.
		existing.Status = StatusActive
		existing.UpdatedAt = r.now()
		applied, err := r.publishSession(ctx, hub.ProcUpdateSession, existing)
		if err != nil {
			return err
		}
		existing = applied
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = MergeSession(r.session, existing)
	if r.session.CoupleID != coupleID {
		r.session = existing
	}
	if err := r.store.WriteJSON(storage.KeySession, r.session); err != nil {
		log.Printf("reconciler: session snapshot write failed: %v", err)
	}
	return nil
}

// DrawCard stamps the card with its drawer and makes it the session's
// current card, appending to history.
func (r *Reconciler) DrawCard(ctx context.Context, card Card) error {
	text, err := validateCardText(card.Text)
	if err != nil {
		return err
	}
	return r.updateSession(ctx, hub.ProcUpdateSession, "card_drawn", func(self *Partner, session *Session) error {
		card.Text = text
		if card.ID == "" {
			card.ID = uuid.New().String()
		}
		card.DrawnByID = self.ID
		card.DrawnByName = self.Name
		card.DrawnAt = r.now()
		session.CurrentCard = &card
		session.History = append(session.History, card)
		session.Status = StatusActive
		return nil
	})
}

// AppendStroke stamps and appends one canvas stroke.
func (r *Reconciler) AppendStroke(ctx context.Context, stroke Stroke) error {
	if len(stroke.Points) == 0 {
		return errors.New("stroke has no points")
	}
	r.mu.Lock()
	allowed := r.couple == nil || r.couple.Settings.AllowDrawing
	r.mu.Unlock()
	if !allowed {
		return ErrDrawingDisabled
	}
	return r.updateSession(ctx, hub.ProcUpdateCanvas, "stroke_added", func(self *Partner, session *Session) error {
		if stroke.ID == "" {
			stroke.ID = uuid.New().String()
		}
		stroke.AuthorID = self.ID
		stroke.AuthorName = self.Name
		stroke.Timestamp = r.now()
		if stroke.Color == "" {
			stroke.Color = self.Preferences["drawing_color"]
		}
		session.Canvas = append(session.Canvas, stroke)
		return nil
	})
}

// AppendNote appends a note record to the shared notes log.
func (r *Reconciler) AppendNote(ctx context.Context, content string, private bool) error {
	text, err := validateNote(content)
	if err != nil {
		return err
	}
	r.mu.Lock()
	allowed := r.couple == nil || r.couple.Settings.AllowNotes
	r.mu.Unlock()
	if !allowed {
		return ErrNotesDisabled
	}
	return r.updateSession(ctx, hub.ProcUpdateSession, "note_added", func(self *Partner, session *Session) error {
		session.Notes = append(session.Notes, Note{
			ID:         uuid.New().String(),
			AuthorID:   self.ID,
			AuthorName: self.Name,
			Content:    text,
			Private:    private,
			Timestamp:  r.now(),
		})
		return nil
	})
}

// AppendMessage appends a chat message to the shared message log.
func (r *Reconciler) AppendMessage(ctx context.Context, content string) error {
	text, err := validateMessage(content)
	if err != nil {
		return err
	}
	return r.updateSession(ctx, hub.ProcSendMessage, "message_sent", func(self *Partner, session *Session) error {
		session.Messages = append(session.Messages, Message{
			ID:         uuid.New().String(),
			AuthorID:   self.ID,
			AuthorName: self.Name,
			Content:    text,
			Timestamp:  r.now(),
		})
		return nil
	})
}

// ClearCanvas empties the shared canvas. Notes and chat are untouched.
func (r *Reconciler) ClearCanvas(ctx context.Context) error {
	return r.updateSession(ctx, hub.ProcUpdateCanvas, "canvas_cleared", func(self *Partner, session *Session) error {
		session.Canvas = nil
		session.CanvasEpoch++
		return nil
	})
}

func (r *Reconciler) updateSession(ctx context.Context, procedure, eventType string, mutate func(*Partner, *Session) error) error {
	r.mu.Lock()
	if r.self == nil {
		r.mu.Unlock()
		return ErrNotAuthenticated
	}
	if r.session == nil {
		r.mu.Unlock()
		return ErrNoSession
	}
	working := cloneSession(r.session)
	if err := mutate(r.self, working); err != nil {
		r.mu.Unlock()
		return err
	}
	working.UpdatedAt = r.now()
	r.session = working
	if err := r.store.WriteJSON(storage.KeySession, working); err != nil {
		log.Printf("reconciler: session snapshot write failed: %v", err)
	}
	outbound := cloneSession(working)
	r.mu.Unlock()

	applied, err := r.publishSession(ctx, procedure, outbound)
	if err != nil {
		return err
	}
	r.applySession(applied)
	r.recordEvent(eventType, map[string]any{
		"couple_id":  outbound.CoupleID,
		"session_id": outbound.ID,
	})
	return nil
}

// SwitchProfile rebinds the reconciler to another profile namespace and
// reloads whatever that profile last persisted. The bridge is untouched:
// the shared namespace is profile-independent.
func (r *Reconciler) SwitchProfile(profile string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = r.store.WithProfile(profile)
	r.self = nil
	r.couple = nil
	r.session = nil
	r.freshPairing = false
	r.loadSnapshots()
}

// UpdateSettings replaces the couple settings and republishes them.
func (r *Reconciler) UpdateSettings(ctx context.Context, settings Settings) error {
	r.mu.Lock()
	if r.self == nil || r.couple == nil {
		r.mu.Unlock()
		return ErrNotAuthenticated
	}
	working := cloneCouple(r.couple)
	working.Settings = settings
	working.LastActivity = r.now()
	r.couple = working
	if err := r.store.WriteJSON(storage.KeyCouple, working); err != nil {
		log.Printf("reconciler: couple snapshot write failed: %v", err)
	}
	outbound := cloneCouple(working)
	r.mu.Unlock()

	if _, err := r.publishCouple(ctx, hub.ProcUpdateCouple, outbound); err != nil {
		return err
	}
	r.recordEvent("settings_updated", map[string]any{
		"couple_id": outbound.ID,
	})
	return nil
}

// Leave removes this partner from the couple, republishes the trimmed
// membership and clears all local state plus the bridge subscriptions.
// Calling it while unpaired is a no-op.
func (r *Reconciler) Leave(ctx context.Context) error {
	r.mu.Lock()
	self := r.self
	pair := cloneCouple(r.couple)
	r.mu.Unlock()

	if pair != nil && self != nil {
		trimmed := pair.Members[:0]
		removed := false
		for _, entry := range pair.Members {
			if entry.ID == self.ID {
				removed = true
				continue
			}
			trimmed = append(trimmed, entry)
		}
		if removed {
			pair.Members = trimmed
			pair.MembershipVersion++
			pair.LastActivity = r.now()
			if _, err := r.publishCouple(ctx, hub.ProcUpdateCouple, pair); err != nil {
				log.Printf("reconciler: leave republish failed: %v", err)
			}
			r.recordEvent("couple_left", map[string]any{
				"couple_id": pair.ID,
				"member":    self.Name,
			})
		}
	}

	r.mu.Lock()
	r.self = nil
	r.couple = nil
	r.session = nil
	r.freshPairing = false
	for _, key := range []string{storage.KeyPartner, storage.KeyCouple, storage.KeySession} {
		if err := r.store.Delete(key); err != nil {
			log.Printf("reconciler: clearing %s failed: %v", key, err)
		}
	}
	r.unsubscribe()
	r.mu.Unlock()
	return nil
}

// ConnectedPartner returns the other member of the couple if its last-seen
// is strictly within the partner-liveness threshold, nil otherwise.
func (r *Reconciler) ConnectedPartner() *Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.self == nil || r.couple == nil {
		return nil
	}
	now := r.now()
	for i := range r.couple.Members {
		entry := r.couple.Members[i]
		if entry.ID == r.self.ID {
			continue
		}
		if entry.Offline || presence.Stale(entry.LastSeen, now, r.partnerThreshold()) {
			return nil
		}
		clone := entry
		return &clone
	}
	return nil
}

// State reports the couple lifecycle from this partner's perspective.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return StateFor(r.couple, r.now(), r.partnerThreshold())
}

// Roster lists the couple members classified by the short registry
// threshold, the view a presence listing shows.
func (r *Reconciler) Roster() []RosterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Roster(r.couple, r.now(), r.registryThreshold())
}

func (r *Reconciler) Self() *Partner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clonePartner(r.self)
}

func (r *Reconciler) Couple() *Couple {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneCouple(r.couple)
}

func (r *Reconciler) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSession(r.session)
}

// FreshPairing reports whether a two-member pairing completed during this
// process; the restore decision uses it to bypass the resume prompt.
func (r *Reconciler) FreshPairing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.freshPairing
}

// Announce refreshes this partner's last-seen everywhere a peer can read
// it. Called by the presence heartbeat on its fixed interval.
func (r *Reconciler) Announce(ctx context.Context) error {
	r.mu.Lock()
	if r.self == nil {
		r.mu.Unlock()
		return ErrNotAuthenticated
	}
	now := r.now()
	r.self.LastSeen = now
	if err := r.store.WriteJSON(storage.KeyPartner, r.self); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.couple == nil {
		r.mu.Unlock()
		return nil
	}
	if member := r.couple.member(r.self.ID); member != nil {
		member.LastSeen = now
		member.Offline = false
	}
	outbound := cloneCouple(r.couple)
	r.mu.Unlock()

	_, err := r.publishCouple(ctx, hub.ProcAnnouncePresence, outbound)
	return err
}

// MarkOffline is the best-effort shutdown write. The staleness rule stays
// the authoritative offline signal if this never lands.
func (r *Reconciler) MarkOffline(ctx context.Context) error {
	r.mu.Lock()
	if r.self == nil || r.couple == nil {
		r.mu.Unlock()
		return nil
	}
	if member := r.couple.member(r.self.ID); member != nil {
		member.LastSeen = r.now()
		member.Offline = true
	}
	outbound := cloneCouple(r.couple)
	r.mu.Unlock()

	_, err := r.publishCouple(ctx, hub.ProcAnnouncePresence, outbound)
	return err
}

// Rehydrate re-fetches authoritative couple and session state, merging it
// into the local copies. Used on resume and after a hub reconnect.
func (r *Reconciler) Rehydrate(ctx context.Context) error {
	r.mu.Lock()
	var coupleID string
	if r.couple != nil {
		coupleID = r.couple.ID
	} else if r.self != nil {
		coupleID = r.self.JoinCode
	}
	r.mu.Unlock()
	if coupleID == "" {
		return ErrNoSession
	}
	pair, err := r.fetchCouple(ctx, coupleID)
	if err != nil {
		return err
	}
	if pair != nil {
		r.applyCouple(pair)
	}
	session, err := r.fetchSession(ctx, coupleID)
	if err != nil {
		return err
	}
	if session != nil {
		r.applySession(session)
	}
	return nil
}

func (r *Reconciler) fetchCouple(ctx context.Context, coupleID string) (*Couple, error) {
	raw, err := r.bridge.Invoke(ctx, hub.ProcGetCouple, lookupRequest{CoupleID: coupleID})
	if err != nil {
		return nil, err
	}
	return decodeCouple(raw)
}

func (r *Reconciler) fetchSession(ctx context.Context, coupleID string) (*Session, error) {
	raw, err := r.bridge.Invoke(ctx, hub.ProcGetSession, lookupRequest{CoupleID: coupleID})
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

func (r *Reconciler) publishCouple(ctx context.Context, procedure string, pair *Couple) (*Couple, error) {
	raw, err := r.bridge.Invoke(ctx, procedure, pair)
	if err != nil {
		return nil, fmt.Errorf("publish couple: %w", err)
	}
	applied, decodeErr := decodeCouple(raw)
	if decodeErr != nil || applied == nil {
		return pair, nil
	}
	return applied, nil
}

func (r *Reconciler) publishSession(ctx context.Context, procedure string, session *Session) (*Session, error) {
	raw, err := r.bridge.Invoke(ctx, procedure, session)
	if err != nil {
		return nil, fmt.Errorf("publish session: %w", err)
	}
	applied, decodeErr := decodeSession(raw)
	if decodeErr != nil || applied == nil {
		return session, nil
	}
	return applied, nil
}

func (r *Reconciler) onCoupleUpdated(payload json.RawMessage) {
	pair, err := decodeCouple(payload)
	if err != nil || pair == nil {
		return
	}
	r.applyCouple(pair)
}

func (r *Reconciler) onSessionUpdated(payload json.RawMessage) {
	session, err := decodeSession(payload)
	if err != nil || session == nil {
		return
	}
	r.applySession(session)
}

func (r *Reconciler) onSessionEnded(json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.session.Status = StatusCompleted
	if err := r.store.WriteJSON(storage.KeySession, r.session); err != nil {
		log.Printf("reconciler: session snapshot write failed: %v", err)
	}
}

// onReconnected re-fetches authoritative state instead of assuming nothing
// was missed while the hub link was down.
func (r *Reconciler) onReconnected(json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Rehydrate(ctx); err != nil && !errors.Is(err, ErrNoSession) {
		log.Printf("reconciler: resync after reconnect failed: %v", err)
	}
}

func (r *Reconciler) applyCouple(pair *Couple) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.self == nil {
		return
	}
	if pair.member(r.self.ID) == nil && (r.couple == nil || r.couple.ID != pair.ID) {
		return
	}
	prior := 0
	if r.couple != nil {
		prior = len(r.couple.Members)
	}
	r.couple = MergeCouple(r.couple, pair)
	if prior < 2 && len(r.couple.Members) == 2 {
		r.freshPairing = true
	}
	if err := r.store.WriteJSON(storage.KeyCouple, r.couple); err != nil {
		log.Printf("reconciler: couple snapshot write failed: %v", err)
	}
}

func (r *Reconciler) applySession(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.couple == nil || session.CoupleID != r.couple.ID {
		return
	}
	r.session = MergeSession(r.session, session)
	if err := r.store.WriteJSON(storage.KeySession, r.session); err != nil {
		log.Printf("reconciler: session snapshot write failed: %v", err)
	}
}

func roleOf(pair *Couple, memberID string) string {
	if member := pair.member(memberID); member != nil {
		return member.Role
	}
	return ""
}

func decodeCouple(raw json.RawMessage) (*Couple, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var pair Couple
	if err := json.Unmarshal(raw, &pair); err != nil {
		return nil, err
	}
	if pair.ID == "" {
		return nil, nil
	}
	return &pair, nil
}

func decodeSession(raw json.RawMessage) (*Session, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, nil
	}
	return &session, nil
}

func clonePartner(p *Partner) *Partner {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Preferences != nil {
		clone.Preferences = make(map[string]string, len(p.Preferences))
		for key, value := range p.Preferences {
			clone.Preferences[key] = value
		}
	}
	return &clone
}

func cloneCouple(c *Couple) *Couple {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Members = make([]Member, len(c.Members))
	copy(clone.Members, c.Members)
	return &clone
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.History = append([]Card(nil), s.History...)
	clone.Canvas = append([]Stroke(nil), s.Canvas...)
	clone.Notes = append([]Note(nil), s.Notes...)
	clone.Messages = append([]Message(nil), s.Messages...)
	if s.CurrentCard != nil {
		card := *s.CurrentCard
		clone.CurrentCard = &card
	}
	return &clone
}
