package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, claim *Claim) error
	Update(ctx context.Context, db *gorm.DB, claim *Claim) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	// ListByHamlet returns the hamlet's claims with status in creation order.
	ListByHamlet(ctx context.Context, db *gorm.DB, hamlet string, status string) ([]*Claim, error)
	ExistsRef(ctx context.Context, db *gorm.DB, hamlet string, ref string, status string) (bool, error)
	CountRefPrefix(ctx context.Context, db *gorm.DB, hamlet string, prefix string) (int64, error)
	ListWithGeography(ctx context.Context, db *gorm.DB, status string) ([]ClaimView, error)
}
