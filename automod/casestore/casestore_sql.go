package casestore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Row layout of the "cases" table.
type CaseRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"not null;index"`
	ModeratorID string    `gorm:"not null"`
	Action      string    `gorm:"not null"`
	Reason      string    `gorm:"not null"`
	Timestamp   time.Time `gorm:"not null"`
}

func (CaseRow) TableName() string {
	return "cases"
}

// Case ledger backed by an SQL database. Identifiers come from the table's autoincrement primary key, so uniqueness and ordering hold across processes sharing the database.
type SQLCaseStore struct {
	db *gorm.DB
}

var _ CaseStore = (*SQLCaseStore)(nil)

// Opens the ledger on an existing database handle, creating or migrating the table as needed. A failure here means the ledger is unusable.
func NewSQLCaseStore(db *gorm.DB) (*SQLCaseStore, error) {
	if err := db.AutoMigrate(&CaseRow{}); err != nil {
		return nil, fmt.Errorf("migrating cases table: %w", err)
	}
	return &SQLCaseStore{db: db}, nil
}

func (s *SQLCaseStore) AddCase(ctx context.Context, c Case) (int64, error) {
	ts := c.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	row := CaseRow{
		UserID:      c.SubjectID,
		ModeratorID: c.ActorID,
		Action:      c.Action,
		Reason:      c.Reason,
		Timestamp:   ts,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("inserting case: %w", err)
	}
	return row.ID, nil
}

func (s *SQLCaseStore) ListCases(ctx context.Context, subject string) ([]Case, error) {
	var rows []CaseRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", subject).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	out := make([]Case, len(rows))
	for i, r := range rows {
		out[i] = Case{
			ID:        r.ID,
			SubjectID: r.UserID,
			ActorID:   r.ModeratorID,
			Action:    r.Action,
			Reason:    r.Reason,
			CreatedAt: r.Timestamp,
		}
	}
	return out, nil
}
