package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/microgrid/internal/household/domain"
	"github.com/smallbiznis/microgrid/pkg/db"
	"gorm.io/gorm"
)

const householdColumns = `customer_id, hh_name, hamlet, state, district, block, gp, village, vec_name, meter_num,
	submissions, drafts, submission_count, draft_count, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, h *domain.Household) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO households (`+householdColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insertArgs(h)...,
	).Error
}

func (r *repo) InsertIgnore(ctx context.Context, conn *gorm.DB, households []domain.Household) (int64, error) {
	prefix, suffix := db.InsertIgnore(conn)
	var inserted int64
	for i := range households {
		res := conn.WithContext(ctx).Exec(
			prefix+` households (`+householdColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`+suffix,
			insertArgs(&households[i])...,
		)
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

func insertArgs(h *domain.Household) []interface{} {
	return []interface{}{
		h.CustomerID,
		h.HHName,
		h.Hamlet,
		h.State,
		h.District,
		h.Block,
		h.GP,
		h.Village,
		h.VECName,
		h.MeterNum,
		h.Submissions,
		h.Drafts,
		len(h.Submissions),
		len(h.Drafts),
		h.CreatedAt,
		h.UpdatedAt,
	}
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, customerID string) (*domain.Household, error) {
	return r.find(ctx, conn, customerID, "")
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, customerID string) (*domain.Household, error) {
	return r.find(ctx, conn, customerID, db.ForUpdate(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, customerID, lock string) (*domain.Household, error) {
	var h domain.Household
	err := conn.WithContext(ctx).Raw(
		`SELECT `+householdColumns+` FROM households WHERE customer_id = ?`+lock,
		customerID,
	).Scan(&h).Error
	if err != nil {
		return nil, err
	}
	if h.CustomerID == "" {
		return nil, nil
	}
	return &h, nil
}

func (r *repo) SaveEntries(ctx context.Context, conn *gorm.DB, h *domain.Household) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE households
		 SET submissions = ?, drafts = ?, submission_count = ?, draft_count = ?, updated_at = ?
		 WHERE customer_id = ?`,
		h.Submissions,
		h.Drafts,
		len(h.Submissions),
		len(h.Drafts),
		h.UpdatedAt,
		h.CustomerID,
	).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Household, error) {
	var households []*domain.Household
	stmt := conn.WithContext(ctx).Model(&domain.Household{})
	if hamlet := strings.TrimSpace(filter.Hamlet); hamlet != "" {
		stmt = stmt.Where("lower(hamlet) = lower(?)", hamlet)
	}
	if err := stmt.Order("created_at asc, customer_id asc").Find(&households).Error; err != nil {
		return nil, err
	}
	return households, nil
}

func (r *repo) ListSummaries(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Summary, error) {
	var rows []domain.Summary
	stmt := conn.WithContext(ctx).Table("households").Select("customer_id, hh_name")
	if hamlet := strings.TrimSpace(filter.Hamlet); hamlet != "" {
		stmt = stmt.Where("lower(hamlet) = lower(?)", hamlet)
	}
	if err := stmt.Order("created_at asc, customer_id asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, customerID string) (int64, error) {
	res := conn.WithContext(ctx).Exec(`DELETE FROM households WHERE customer_id = ?`, customerID)
	return res.RowsAffected, res.Error
}

func (r *repo) ClearEntries(ctx context.Context, conn *gorm.DB) (int64, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE households SET submissions = ?, drafts = ?, submission_count = 0, draft_count = 0`,
		"[]", "[]",
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Count(ctx context.Context, conn *gorm.DB) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(`SELECT COUNT(*) FROM households`).Scan(&count).Error
	return count, err
}

func (r *repo) CountWithSubmissions(ctx context.Context, conn *gorm.DB) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(`SELECT COUNT(*) FROM households WHERE submission_count > 0`).Scan(&count).Error
	return count, err
}
