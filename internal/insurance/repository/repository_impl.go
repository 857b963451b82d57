package repository

import (
	"context"

	"github.com/smallbiznis/microgrid/internal/insurance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Claim) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO insurance_claims (
			id, hamlet, hamlet_key, claim_ref_number, claim_date, claiming_for,
			claim_application_photo, claiming_for_image, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Hamlet,
		c.HamletKey,
		c.ClaimRefNumber,
		c.ClaimDate,
		c.ClaimingFor,
		c.ClaimApplicationPhoto,
		c.ClaimingForImage,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, c *domain.Claim) error {
	return db.WithContext(ctx).Exec(
		`UPDATE insurance_claims
		 SET claim_ref_number = ?, claim_date = ?, claiming_for = ?, claim_application_photo = ?,
		     claiming_for_image = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		c.ClaimRefNumber,
		c.ClaimDate,
		c.ClaimingFor,
		c.ClaimApplicationPhoto,
		c.ClaimingForImage,
		c.Status,
		c.UpdatedAt,
		c.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM insurance_claims WHERE id = ?`, id).Error
}

func (r *repo) ListByHamlet(ctx context.Context, db *gorm.DB, hamlet string, status string) ([]*domain.Claim, error) {
	var claims []*domain.Claim
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM insurance_claims
		 WHERE hamlet_key = ? AND status = ?
		 ORDER BY created_at ASC, id ASC`,
		domain.Key(hamlet), status,
	).Scan(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *repo) ExistsRef(ctx context.Context, db *gorm.DB, hamlet string, ref string, status string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM insurance_claims WHERE hamlet_key = ? AND claim_ref_number = ? AND status = ?`,
		domain.Key(hamlet), ref, status,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) CountRefPrefix(ctx context.Context, db *gorm.DB, hamlet string, prefix string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM insurance_claims WHERE hamlet_key = ? AND claim_ref_number LIKE ?`,
		domain.Key(hamlet), prefix+"%",
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListWithGeography(ctx context.Context, db *gorm.DB, status string) ([]domain.ClaimView, error) {
	var rows []domain.ClaimView
	err := db.WithContext(ctx).Raw(
		`SELECT i.*, v.state, v.district, v.block, v.gp, v.village, v.vec_name, v.microgrid_id
		 FROM insurance_claims i
		 LEFT JOIN vecs v ON v.hamlet_key = i.hamlet_key
		 WHERE i.status = ?
		 ORDER BY i.created_at ASC, i.id ASC`,
		status,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
