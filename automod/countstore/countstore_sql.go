package countstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row layout of the "warnings" table.
type WarningRow struct {
	UserID string `gorm:"primaryKey"`
	Count  int    `gorm:"not null;default:0"`
}

func (WarningRow) TableName() string {
	return "warnings"
}

// Warning counts backed by an SQL database. Increments are a single upsert ("increment on conflict"), so concurrent writers never lose an update, even across processes.
type SQLCountStore struct {
	db *gorm.DB
}

var _ CountStore = (*SQLCountStore)(nil)

func NewSQLCountStore(db *gorm.DB) (*SQLCountStore, error) {
	if err := db.AutoMigrate(&WarningRow{}); err != nil {
		return nil, fmt.Errorf("migrating warnings table: %w", err)
	}
	return &SQLCountStore{db: db}, nil
}

func (s *SQLCountStore) GetCount(ctx context.Context, userID string) (int, error) {
	var row WarningRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("reading warning count: %w", err)
	}
	return row.Count, nil
}

func (s *SQLCountStore) Increment(ctx context.Context, userID string) (int, error) {
	var count int
	// the upsert takes the row lock, and the read in the same transaction sees this transaction's write
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"count": gorm.Expr("warnings.count + 1")}),
		}).Create(&WarningRow{UserID: userID, Count: 1}).Error
		if err != nil {
			return err
		}
		var row WarningRow
		if err := tx.Where("user_id = ?", userID).Take(&row).Error; err != nil {
			return err
		}
		count = row.Count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing warning count: %w", err)
	}
	return count, nil
}

func (s *SQLCountStore) Reset(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&WarningRow{}).Error; err != nil {
		return fmt.Errorf("resetting warning count: %w", err)
	}
	return nil
}
