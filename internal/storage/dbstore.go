package storage

import (
	"errors"

	"couple-cards/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB is the durable storage origin shared by every profile on the host.
type DB struct {
	conn *gorm.DB
}

func NewDB(conn *gorm.DB) *DB {
	return &DB{conn: conn}
}

func (d *DB) Get(profile, key string) ([]byte, bool, error) {
	if d.conn == nil {
		return nil, false, ErrUnavailable
	}
	var record db.KVRecord
	err := d.conn.Where("profile = ? AND key = ?", profile, key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(record.Value), true, nil
}

func (d *DB) Put(profile, key string, value []byte) error {
	if d.conn == nil {
		return ErrUnavailable
	}
	record := db.KVRecord{
		Profile: profile,
		Key:     key,
		Value:   datatypes.JSON(value),
	}
	err := d.conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil && isUniqueViolation(err) {
		return d.conn.Model(&db.KVRecord{}).
			Where("profile = ? AND key = ?", profile, key).
			Update("value", datatypes.JSON(value)).Error
	}
	return err
}

func (d *DB) Delete(profile, key string) error {
	if d.conn == nil {
		return ErrUnavailable
	}
	return d.conn.Where("profile = ? AND key = ?", profile, key).Delete(&db.KVRecord{}).Error
}

func (d *DB) Keys(profile string) ([]string, error) {
	if d.conn == nil {
		return nil, ErrUnavailable
	}
	var keys []string
	err := d.conn.Model(&db.KVRecord{}).
		Where("profile = ?", profile).
		Order("key asc").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
