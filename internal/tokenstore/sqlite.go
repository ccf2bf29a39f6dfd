package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinicdesk/internal/database"
)

type flagRecord struct {
	Key       string `gorm:"column:name;primaryKey;size:32"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (flagRecord) TableName() string { return "client_flags" }

type SQLiteStore struct {
	db *gorm.DB
}

func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return store, nil
}

func NewSQLiteStore(ctx context.Context, db *gorm.DB) (*SQLiteStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&flagRecord{}); err != nil {
		return nil, fmt.Errorf("migrate client_flags: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	return setKey(s.db.WithContext(ctx), KeyToken, token)
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	return s.get(ctx, KeyToken)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Where("name IN ?", []string{KeyToken, KeyUserID}).
		Delete(&flagRecord{}).Error
	if err != nil {
		return fmt.Errorf("clear flags: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveUserID(ctx context.Context, id string) error {
	return setKey(s.db.WithContext(ctx), KeyUserID, id)
}

func (s *SQLiteStore) LoadUserID(ctx context.Context) (string, error) {
	return s.get(ctx, KeyUserID)
}

func (s *SQLiteStore) Put(ctx context.Context, flags Flags) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setKey(tx, KeyToken, flags.Token); err != nil {
			return err
		}
		return setKey(tx, KeyUserID, flags.UserID)
	})
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (Flags, error) {
	var records []flagRecord
	err := s.db.WithContext(ctx).
		Where("name IN ?", []string{KeyToken, KeyUserID}).
		Find(&records).Error
	if err != nil {
		return Flags{}, fmt.Errorf("read flags: %w", err)
	}

	var flags Flags
	for _, r := range records {
		switch r.Key {
		case KeyToken:
			flags.Token = r.Value
		case KeyUserID:
			flags.UserID = r.Value
		}
	}
	return flags, nil
}

func (s *SQLiteStore) Close() error {
	return database.Close(s.db)
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var record flagRecord
	err := s.db.WithContext(ctx).Where("name = ?", key).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAbsent
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if record.Value == "" {
		return "", ErrAbsent
	}
	return record.Value, nil
}

// setKey upserts key, or deletes it when value is empty.
func setKey(db *gorm.DB, key string, value string) error {
	if value == "" {
		if err := db.Where("name = ?", key).Delete(&flagRecord{}).Error; err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	}

	record := flagRecord{Key: key, Value: value}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
