package repository

import (
	"context"

	"github.com/smallbiznis/microgrid/internal/vec/domain"
	"github.com/smallbiznis/microgrid/pkg/db"
	"gorm.io/gorm"
)

const vecColumns = `hamlet_key, hamlet, vec_name, state, district, block, gp, village, microgrid_id,
	submissions, drafts, submission_count, draft_count, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, v *domain.VEC) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO vecs (`+vecColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insertArgs(v)...,
	).Error
}

func (r *repo) InsertIgnore(ctx context.Context, conn *gorm.DB, vecs []domain.VEC) (int64, error) {
	prefix, suffix := db.InsertIgnore(conn)
	var inserted int64
	for i := range vecs {
		res := conn.WithContext(ctx).Exec(
			prefix+` vecs (`+vecColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`+suffix,
			insertArgs(&vecs[i])...,
		)
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

func insertArgs(v *domain.VEC) []interface{} {
	return []interface{}{
		domain.Key(v.Hamlet),
		v.Hamlet,
		v.VECName,
		v.State,
		v.District,
		v.Block,
		v.GP,
		v.Village,
		v.MicrogridID,
		v.Submissions,
		v.Drafts,
		len(v.Submissions),
		len(v.Drafts),
		v.CreatedAt,
		v.UpdatedAt,
	}
}

func (r *repo) FindByHamlet(ctx context.Context, conn *gorm.DB, hamlet string) (*domain.VEC, error) {
	return r.find(ctx, conn, hamlet, "")
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, hamlet string) (*domain.VEC, error) {
	return r.find(ctx, conn, hamlet, db.ForUpdate(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, hamlet, lock string) (*domain.VEC, error) {
	var v domain.VEC
	err := conn.WithContext(ctx).Raw(
		`SELECT `+vecColumns+` FROM vecs WHERE hamlet_key = ?`+lock,
		domain.Key(hamlet),
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.HamletKey == "" {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) SaveEntries(ctx context.Context, conn *gorm.DB, v *domain.VEC) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE vecs
		 SET submissions = ?, drafts = ?, submission_count = ?, draft_count = ?, updated_at = ?
		 WHERE hamlet_key = ?`,
		v.Submissions,
		v.Drafts,
		len(v.Submissions),
		len(v.Drafts),
		v.UpdatedAt,
		v.HamletKey,
	).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.VEC, error) {
	var vecs []*domain.VEC
	stmt := conn.WithContext(ctx).Model(&domain.VEC{})
	if key := domain.Key(filter.Hamlet); key != "" {
		stmt = stmt.Where("hamlet_key = ?", key)
	}
	if err := stmt.Order("hamlet_key asc").Find(&vecs).Error; err != nil {
		return nil, err
	}
	return vecs, nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, hamlet string) (int64, error) {
	res := conn.WithContext(ctx).Exec(`DELETE FROM vecs WHERE hamlet_key = ?`, domain.Key(hamlet))
	return res.RowsAffected, res.Error
}

func (r *repo) ClearEntries(ctx context.Context, conn *gorm.DB) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE vecs SET submissions = ?, drafts = ?, submission_count = 0, draft_count = 0`,
		"[]", "[]",
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Count(ctx context.Context, conn *gorm.DB) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(`SELECT COUNT(*) FROM vecs`).Scan(&count).Error
	return count, err
}
