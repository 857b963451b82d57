package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	// Hamlet matches case-insensitively when set.
	Hamlet string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, household *Household) error
	// InsertIgnore skips rows whose customer id already exists and returns
	// the number inserted.
	InsertIgnore(ctx context.Context, db *gorm.DB, households []Household) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, customerID string) (*Household, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, customerID string) (*Household, error)
	SaveEntries(ctx context.Context, db *gorm.DB, household *Household) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Household, error)
	ListSummaries(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Summary, error)
	Delete(ctx context.Context, db *gorm.DB, customerID string) (int64, error)
	ClearEntries(ctx context.Context, db *gorm.DB) (int64, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	CountWithSubmissions(ctx context.Context, db *gorm.DB) (int64, error)
}
