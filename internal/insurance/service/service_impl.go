package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/entitylock"
	"github.com/smallbiznis/microgrid/internal/insurance/domain"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	"github.com/smallbiznis/microgrid/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entity = "insurance"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Locker  entitylock.Locker
	Authz   authorization.Service
	Audit   auditdomain.Service `optional:"true"`
	Metrics *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	locker  entitylock.Locker
	authz   authorization.Service
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("insurance.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		locker:  p.Locker,
		authz:   p.Authz,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *Service) GetHamlet(ctx context.Context, hamlet string) (domain.HamletClaims, error) {
	hamlet, err := s.authorize(ctx, hamlet, authorization.ActionView)
	if err != nil {
		return domain.HamletClaims{}, err
	}
	submissions, err := s.repo.ListByHamlet(ctx, s.db, hamlet, domain.StatusSubmitted)
	if err != nil {
		return domain.HamletClaims{}, lifecycle.Store(err)
	}
	drafts, err := s.repo.ListByHamlet(ctx, s.db, hamlet, domain.StatusDraft)
	if err != nil {
		return domain.HamletClaims{}, lifecycle.Store(err)
	}
	return domain.HamletClaims{
		Hamlet:      hamlet,
		Submissions: values(submissions),
		Drafts:      values(drafts),
	}, nil
}

func (s *Service) SaveDraft(ctx context.Context, req domain.DraftRequest) (domain.Claim, error) {
	hamlet, err := s.authorize(ctx, req.Hamlet, authorization.ActionDraft)
	if err != nil {
		return domain.Claim{}, err
	}

	var saved domain.Claim
	err = s.withLock(ctx, hamlet, func(tx *gorm.DB) error {
		ref := strings.TrimSpace(req.Claim.ClaimRefNumber)
		if ref == "" {
			next, err := s.nextRef(ctx, tx, hamlet, s.clock.Now())
			if err != nil {
				return err
			}
			ref = next
		}
		saved = s.newClaim(hamlet, req.Claim, ref, domain.StatusDraft)
		return s.repo.Insert(ctx, tx, &saved)
	})
	if err != nil {
		return domain.Claim{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "draft")
	s.record(ctx, "insurance.draft.save", hamlet, map[string]any{"claim_ref_number": saved.ClaimRefNumber})
	return saved, nil
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Claim, error) {
	ref := strings.TrimSpace(req.Claim.ClaimRefNumber)
	if ref == "" {
		return domain.Claim{}, lifecycle.Validation("claim_ref_number", domain.MsgRefRequired)
	}
	hamlet, err := s.authorize(ctx, req.Hamlet, authorization.ActionSubmit)
	if err != nil {
		return domain.Claim{}, err
	}

	var saved domain.Claim
	err = s.withLock(ctx, hamlet, func(tx *gorm.DB) error {
		exists, err := s.repo.ExistsRef(ctx, tx, hamlet, ref, domain.StatusSubmitted)
		if err != nil {
			return err
		}
		if exists {
			s.metrics.RecordConflict(ctx, entity)
			return lifecycle.Conflict(domain.MsgRefExists)
		}

		if req.DraftIndex == nil {
			saved = s.newClaim(hamlet, req.Claim, ref, domain.StatusSubmitted)
			return s.repo.Insert(ctx, tx, &saved)
		}

		drafts, err := s.repo.ListByHamlet(ctx, tx, hamlet, domain.StatusDraft)
		if err != nil {
			return err
		}
		index := *req.DraftIndex
		if index < 0 || index >= len(drafts) || drafts[index] == nil {
			return lifecycle.NotFound("Invalid draft index")
		}
		claim := *drafts[index]
		claim.ClaimRefNumber = ref
		claim.ClaimDate = strings.TrimSpace(req.Claim.ClaimDate)
		claim.ClaimingFor = strings.TrimSpace(req.Claim.ClaimingFor)
		if req.Claim.ClaimApplicationPhoto != nil {
			claim.ClaimApplicationPhoto = req.Claim.ClaimApplicationPhoto
		}
		if req.Claim.ClaimingForImage != nil {
			claim.ClaimingForImage = req.Claim.ClaimingForImage
		}
		claim.Status = domain.StatusSubmitted
		claim.UpdatedAt = s.clock.Now()
		saved = claim
		return s.repo.Update(ctx, tx, &claim)
	})
	if err != nil {
		return domain.Claim{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "submission")
	action := "insurance.submit"
	if req.DraftIndex != nil {
		s.metrics.RecordPromotion(ctx, entity)
		action = "insurance.draft.promote"
	}
	s.record(ctx, action, hamlet, map[string]any{"claim_ref_number": ref})
	return saved, nil
}

func (s *Service) DeleteDraft(ctx context.Context, hamlet string, index int) error {
	hamlet, err := s.authorize(ctx, hamlet, authorization.ActionDraft)
	if err != nil {
		return err
	}

	var removed domain.Claim
	err = s.withLock(ctx, hamlet, func(tx *gorm.DB) error {
		drafts, err := s.repo.ListByHamlet(ctx, tx, hamlet, domain.StatusDraft)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(drafts) || drafts[index] == nil {
			return lifecycle.NotFound("Draft not found")
		}
		removed = *drafts[index]
		return s.repo.Delete(ctx, tx, removed.ID.Int64())
	})
	if err != nil {
		return err
	}
	s.record(ctx, "insurance.draft.delete", hamlet, map[string]any{"draft_index": index, "claim_ref_number": removed.ClaimRefNumber})
	return nil
}

func (s *Service) ListAll(ctx context.Context, status string) ([]domain.ClaimView, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectInsurance, authorization.ActionViewAll); err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != domain.StatusDraft && status != domain.StatusSubmitted {
		return nil, lifecycle.Validation("status", "status must be draft or submitted")
	}
	rows, err := s.repo.ListWithGeography(ctx, s.db, status)
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	if rows == nil {
		rows = []domain.ClaimView{}
	}
	return rows, nil
}

func (s *Service) NextRefNumber(ctx context.Context, hamlet string, date time.Time) (string, error) {
	hamlet, err := s.authorize(ctx, hamlet, authorization.ActionView)
	if err != nil {
		return "", err
	}
	ref, err := s.nextRef(ctx, s.db, hamlet, date)
	if err != nil {
		return "", lifecycle.Store(err)
	}
	return ref, nil
}

// nextRef numbers claims per hamlet and day: CLM-<hamlet>-YYYYMMDD-NNN.
func (s *Service) nextRef(ctx context.Context, conn *gorm.DB, hamlet string, date time.Time) (string, error) {
	prefix := fmt.Sprintf("CLM-%s-%s-", hamlet, date.Format("20060102"))
	count, err := s.repo.CountRefPrefix(ctx, conn, hamlet, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (s *Service) newClaim(hamlet string, in domain.ClaimInput, ref, status string) domain.Claim {
	now := s.clock.Now()
	return domain.Claim{
		ID:                    s.genID.Generate(),
		Hamlet:                hamlet,
		HamletKey:             domain.Key(hamlet),
		ClaimRefNumber:        ref,
		ClaimDate:             strings.TrimSpace(in.ClaimDate),
		ClaimingFor:           strings.TrimSpace(in.ClaimingFor),
		ClaimApplicationPhoto: in.ClaimApplicationPhoto,
		ClaimingForImage:      in.ClaimingForImage,
		Status:                status,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *Service) authorize(ctx context.Context, hamlet, action string) (string, error) {
	hamlet = strings.TrimSpace(hamlet)
	if hamlet == "" {
		return "", lifecycle.Validation("hamlet", "hamlet is required")
	}
	if err := s.authz.AuthorizeHamlet(ctx, authorization.ObjectInsurance, action, hamlet); err != nil {
		return "", err
	}
	return hamlet, nil
}

func (s *Service) withLock(ctx context.Context, hamlet string, fn func(tx *gorm.DB) error) error {
	unlock, err := s.locker.Lock(ctx, "insurance:"+domain.Key(hamlet))
	if err != nil {
		return lifecycle.Store(err)
	}
	defer unlock()

	if err := s.db.WithContext(ctx).Transaction(fn); err != nil {
		err = lifecycle.Store(err)
		if errors.Is(err, lifecycle.ErrStore) {
			s.log.Error("insurance write failed", zap.String("hamlet", hamlet), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, action, hamlet string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AuditLog(ctx, action, entity, hamlet, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func values(items []*domain.Claim) []domain.Claim {
	out := make([]domain.Claim, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
