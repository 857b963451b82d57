package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	Hamlet string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vec *VEC) error
	InsertIgnore(ctx context.Context, db *gorm.DB, vecs []VEC) (int64, error)
	FindByHamlet(ctx context.Context, db *gorm.DB, hamlet string) (*VEC, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, hamlet string) (*VEC, error)
	SaveEntries(ctx context.Context, db *gorm.DB, vec *VEC) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*VEC, error)
	Delete(ctx context.Context, db *gorm.DB, hamlet string) (int64, error)
	ClearEntries(ctx context.Context, db *gorm.DB) (int64, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}
