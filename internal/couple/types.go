package couple

import "time"

const (
	RolePartnerOne = "partner1"
	RolePartnerTwo = "partner2"
)

const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Partner is one authenticated participant. ID is immutable once created;
// the online flag is always derived from LastSeen, never stored.
type Partner struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Role        string            `json:"role"`
	JoinCode    string            `json:"join_code"`
	PartnerName string            `json:"partner_name,omitempty"`
	DeviceID    string            `json:"device_id,omitempty"`
	LastSeen    time.Time         `json:"last_seen"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// Member is the partner summary carried inside a Couple. Offline is a
// best-effort hint written on clean shutdown; the staleness rule stays
// authoritative.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	LastSeen time.Time `json:"last_seen"`
	Offline  bool      `json:"offline,omitempty"`
}

type Settings struct {
	AllowDrawing     bool   `json:"allow_drawing"`
	AllowNotes       bool   `json:"allow_notes"`
	AutoSync         bool   `json:"auto_sync"`
	NotificationMode string `json:"notification_mode"`
}

func defaultSettings() Settings {
	return Settings{
		AllowDrawing:     true,
		AllowNotes:       true,
		AutoSync:         true,
		NotificationMode: "all",
	}
}

// Couple binds at most two partners under one shared identifier.
// MembershipVersion increments only on removal; a higher version replaces
// the member list wholesale so departures survive the upsert merge.
type Couple struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
	Members           []Member  `json:"members"`
	MembershipVersion int       `json:"membership_version,omitempty"`
	Settings          Settings  `json:"settings"`
}

func (c *Couple) member(id string) *Member {
	for i := range c.Members {
		if c.Members[i].ID == id {
			return &c.Members[i]
		}
	}
	return nil
}

// Card is a drawn card stamped with its drawer.
type Card struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Category    string    `json:"category,omitempty"`
	DrawnByID   string    `json:"drawn_by_id"`
	DrawnByName string    `json:"drawn_by_name"`
	DrawnAt     time.Time `json:"drawn_at"`
}

// Stroke, Note and Message are append-only records: immutable once created,
// deduplicated by ID when logs from two peers are merged. Timestamps are for
// display only.
type Stroke struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Points     []Point   `json:"points"`
	Color      string    `json:"color,omitempty"`
	Width      float64   `json:"width,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Note struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Private    bool      `json:"private,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Message struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s Stroke) RecordID() string  { return s.ID }
func (n Note) RecordID() string    { return n.ID }
func (m Message) RecordID() string { return m.ID }

// Session is the runtime state of one play session tied to a Couple. One
// session is active per couple at a time; a new one supersedes the prior.
// CanvasEpoch increments on every clear; canvases only union within the
// same epoch, so a clear cannot be undone by a merge.
type Session struct {
	ID          string    `json:"id"`
	CoupleID    string    `json:"couple_id"`
	CurrentCard *Card     `json:"current_card,omitempty"`
	History     []Card    `json:"history,omitempty"`
	Canvas      []Stroke  `json:"canvas,omitempty"`
	CanvasEpoch int       `json:"canvas_epoch,omitempty"`
	Notes       []Note    `json:"notes,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State is the couple lifecycle from one partner's perspective.
type State string

const (
	StateUnpaired        State = "unpaired"
	StateAwaitingPartner State = "awaiting_partner"
	StatePaired          State = "paired"
	StateActive          State = "active"
)
