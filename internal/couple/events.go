package couple

import (
	"encoding/json"
	"log"

	"couple-cards/internal/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// recordEvent appends one row to the sync_events trail. The trail is
// advisory: failures are logged, never surfaced to the caller.
func (r *Reconciler) recordEvent(eventType string, payload map[string]any) {
	if r.conn == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("reconciler: event payload marshal failed: %v", err)
		return
	}
	row := db.SyncEvent{
		Profile: r.store.Profile(),
		Type:    eventType,
		Payload: datatypes.JSON(raw),
	}
	if coupleID, ok := payload["couple_id"].(string); ok {
		row.CoupleID = coupleID
	}
	r.mu.Lock()
	if r.self != nil {
		row.AuthorID = r.self.ID
	}
	r.mu.Unlock()
	if err := r.conn.Create(&row).Error; err != nil {
		log.Printf("reconciler: event trail write failed: %v", err)
	}
}

// RecentEvents returns the latest trail rows for a couple, newest first.
func RecentEvents(conn *gorm.DB, coupleID string, limit int) ([]db.SyncEvent, error) {
	if conn == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []db.SyncEvent
	err := conn.
		Where("couple_id = ?", coupleID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
