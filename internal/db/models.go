package db

import (
	"time"

	"gorm.io/datatypes"
)

// KVRecord is one namespaced key in the shared storage origin. All simulated
// profiles share the table; the profile column keeps their key sets apart.
type KVRecord struct {
	ID        uint           `gorm:"primaryKey"`
	Profile   string         `gorm:"size:64;not null;uniqueIndex:idx_kv_profile_key"`
	Key       string         `gorm:"size:255;not null;uniqueIndex:idx_kv_profile_key"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

// SyncEvent is the append-only trail of reconciler operations.
type SyncEvent struct {
	ID        uint           `gorm:"primaryKey"`
	Profile   string         `gorm:"size:64;index;not null"`
	CoupleID  string         `gorm:"size:128;index"`
	AuthorID  string         `gorm:"size:64;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
