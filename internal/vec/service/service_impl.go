package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/entitylock"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	"github.com/smallbiznis/microgrid/internal/ledger"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	"github.com/smallbiznis/microgrid/internal/money"
	"github.com/smallbiznis/microgrid/internal/observability/metrics"
	"github.com/smallbiznis/microgrid/internal/vec/domain"
	"github.com/smallbiznis/microgrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const entity = "vec"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Households hhdomain.Repository
	Locker     entitylock.Locker
	Authz      authorization.Service
	Audit      auditdomain.Service `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	households hhdomain.Repository
	locker     entitylock.Locker
	authz      authorization.Service
	audit      auditdomain.Service
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("vec.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		households: p.Households,
		locker:     p.Locker,
		authz:      p.Authz,
		audit:      p.Audit,
		metrics:    p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context, hamlet string) (domain.VEC, error) {
	v, err := s.load(ctx, hamlet, authorization.ActionView)
	if err != nil {
		return domain.VEC{}, err
	}
	return *v, nil
}

func (s *Service) List(ctx context.Context, hamlet string) ([]domain.VEC, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectVEC, authorization.ActionView); err != nil {
		return nil, err
	}
	hamlet, err := authorization.ScopedHamlet(ctx, hamlet)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{Hamlet: hamlet})
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	out := make([]domain.VEC, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *Service) Form(ctx context.Context, hamlet string) (domain.Form, error) {
	v, err := s.load(ctx, hamlet, authorization.ActionView)
	if err != nil {
		return domain.Form{}, err
	}
	today := clock.Today(s.clock)
	collected, err := s.collected(ctx, s.db, v.Hamlet, today)
	if err != nil {
		return domain.Form{}, lifecycle.Store(err)
	}

	form := domain.Form{
		SubmissionDate:  today,
		AmountCollected: money.Format2(collected).String(),
	}
	subs := []domain.Submission(v.Submissions)
	if opening, ok := ledger.VECOpeningSavings(subs, len(subs)); ok {
		form.TotalSavings = money.Format2(opening).String()
		form.Locked = true
	}
	return form, nil
}

func (s *Service) Collection(ctx context.Context, hamlet, month string) (domain.Collection, error) {
	v, err := s.load(ctx, hamlet, authorization.ActionView)
	if err != nil {
		return domain.Collection{}, err
	}
	collected, err := s.collected(ctx, s.db, v.Hamlet, month)
	if err != nil {
		return domain.Collection{}, lifecycle.Store(err)
	}
	return domain.Collection{
		Hamlet:          v.Hamlet,
		Month:           lifecycle.MonthKey(month),
		AmountCollected: money.Format2(collected).String(),
	}, nil
}

// collected sums household payments recorded in the hamlet for the month
// of date.
func (s *Service) collected(ctx context.Context, conn *gorm.DB, hamlet, date string) (decimal.Decimal, error) {
	households, err := s.households.List(ctx, conn, hhdomain.ListFilter{Hamlet: hamlet})
	if err != nil {
		return decimal.Zero, err
	}
	var readings []hhdomain.Submission
	for _, h := range households {
		if h != nil {
			readings = append(readings, h.Submissions...)
		}
	}
	return ledger.CollectedForMonth(readings, date), nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.VEC, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectVEC, authorization.ActionCreate); err != nil {
		return domain.VEC{}, err
	}
	v, err := s.newVEC(req)
	if err != nil {
		return domain.VEC{}, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(v.Hamlet))
	if err != nil {
		return domain.VEC{}, lifecycle.Store(err)
	}
	defer unlock()

	if err := s.repo.Insert(ctx, s.db, v); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.VEC{}, lifecycle.Conflict(domain.MsgExists)
		}
		return domain.VEC{}, lifecycle.Store(err)
	}
	s.record(ctx, "vec.create", v.Hamlet, map[string]any{"microgrid_id": v.MicrogridID})
	return *v, nil
}

func (s *Service) newVEC(req domain.CreateRequest) (*domain.VEC, error) {
	hamlet := strings.TrimSpace(req.Hamlet)
	if hamlet == "" {
		return nil, lifecycle.Validation("hamlet", "hamlet is required")
	}
	now := s.clock.Now()
	return &domain.VEC{
		HamletKey:   domain.Key(hamlet),
		Hamlet:      hamlet,
		VECName:     strings.TrimSpace(req.VECName),
		State:       strings.TrimSpace(req.State),
		District:    strings.TrimSpace(req.District),
		Block:       strings.TrimSpace(req.Block),
		GP:          strings.TrimSpace(req.GP),
		Village:     strings.TrimSpace(req.Village),
		MicrogridID: strings.TrimSpace(req.MicrogridID),
		Submissions: datatypes.JSONSlice[domain.Submission]{},
		Drafts:      datatypes.JSONSlice[domain.Submission]{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Service) Delete(ctx context.Context, hamlet string) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectVEC, authorization.ActionDelete); err != nil {
		return err
	}
	if domain.Key(hamlet) == "" {
		return lifecycle.Validation("hamlet", "hamlet is required")
	}

	unlock, err := s.locker.Lock(ctx, lockKey(hamlet))
	if err != nil {
		return lifecycle.Store(err)
	}
	defer unlock()

	affected, err := s.repo.Delete(ctx, s.db, hamlet)
	if err != nil {
		return lifecycle.Store(err)
	}
	if affected == 0 {
		return lifecycle.NotFound(domain.MsgNotFound)
	}
	s.record(ctx, "vec.delete", strings.TrimSpace(hamlet), nil)
	return nil
}

func (s *Service) Clear(ctx context.Context) (int64, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectVEC, authorization.ActionClear); err != nil {
		return 0, err
	}
	affected, err := s.repo.ClearEntries(ctx, s.db)
	if err != nil {
		return 0, lifecycle.Store(err)
	}
	s.record(ctx, "vec.clear", "", map[string]any{"vecs": affected})
	return affected, nil
}

func (s *Service) Import(ctx context.Context, rows []domain.ImportRow) (domain.ImportResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectVEC, authorization.ActionImport); err != nil {
		return domain.ImportResult{}, err
	}

	vecs := make([]domain.VEC, 0, len(rows))
	for i, row := range rows {
		v, err := s.newVEC(row)
		if err != nil {
			return domain.ImportResult{}, lifecycle.Validation("hamlet", fmt.Sprintf("row %d: hamlet is required", i+1))
		}
		vecs = append(vecs, *v)
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.InsertIgnore(ctx, tx, vecs)
		inserted = n
		return err
	})
	if err != nil {
		return domain.ImportResult{}, lifecycle.Store(err)
	}

	s.metrics.RecordImport(ctx, entity, len(rows))
	s.record(ctx, "vec.import", "", map[string]any{"rows": len(rows), "inserted": inserted})
	return domain.ImportResult{Count: len(rows), Inserted: inserted}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectStats, authorization.ActionView); err != nil {
		return domain.Stats{}, err
	}
	count, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return domain.Stats{}, lifecycle.Store(err)
	}
	pending, err := s.households.CountWithSubmissions(ctx, s.db)
	if err != nil {
		return domain.Stats{}, lifecycle.Store(err)
	}
	return domain.Stats{Count: count, Pending: pending}, nil
}

func (s *Service) SaveDraft(ctx context.Context, req domain.DraftRequest) (int, domain.Submission, error) {
	var (
		index int
		saved domain.Submission
	)
	_, err := s.mutate(ctx, req.Hamlet, authorization.ActionDraft, func(tx *gorm.DB, v *domain.VEC, book *lifecycle.Book[domain.Submission]) error {
		draft := req.Draft
		if strings.TrimSpace(draft.SubmissionDate) == "" {
			return lifecycle.Validation("submission_date", "Please enter a submission date before saving draft.")
		}
		if req.Index != nil {
			current, err := book.Draft(*req.Index)
			if err != nil {
				return err
			}
			if draft.IssueImg == nil {
				draft.IssueImg = current.IssueImg
			}
		}

		prepared, err := s.prepare(ctx, tx, v.Hamlet, draft, book.Submissions, len(book.Submissions))
		if err != nil {
			return err
		}
		saved = prepared
		if req.Index == nil {
			index = book.AddDraft(prepared)
			return nil
		}
		index = *req.Index
		return book.UpdateDraft(index, prepared)
	})
	if err != nil {
		return -1, domain.Submission{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "draft")
	s.record(ctx, "vec.draft.save", req.Hamlet, map[string]any{"draft_index": index, "submission_date": saved.SubmissionDate})
	return index, saved, nil
}

func (s *Service) DeleteDraft(ctx context.Context, hamlet string, index int) error {
	_, err := s.mutate(ctx, hamlet, authorization.ActionDraft, func(_ *gorm.DB, _ *domain.VEC, book *lifecycle.Book[domain.Submission]) error {
		_, err := book.DeleteDraft(index)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "vec.draft.delete", hamlet, map[string]any{"draft_index": index})
	return nil
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (int, domain.Submission, error) {
	var (
		index int
		saved domain.Submission
	)
	_, err := s.mutate(ctx, req.Hamlet, authorization.ActionSubmit, func(tx *gorm.DB, v *domain.VEC, book *lifecycle.Book[domain.Submission]) error {
		entry := req.Submission
		if strings.TrimSpace(entry.SubmissionDate) == "" {
			return lifecycle.Validation("submission_date", "submission_date is required")
		}
		if req.DraftIndex != nil {
			draftIndex := *req.DraftIndex
			if draftIndex < 0 || draftIndex >= len(book.Drafts) {
				return lifecycle.NotFound("Invalid draft index")
			}
			if entry.IssueImg == nil {
				entry.IssueImg = book.Drafts[draftIndex].IssueImg
			}
		}

		prepared, err := s.prepare(ctx, tx, v.Hamlet, entry, book.Submissions, len(book.Submissions))
		if err != nil {
			return err
		}
		if req.DraftIndex != nil {
			index, err = book.Promote(*req.DraftIndex, prepared)
		} else {
			index, err = book.Submit(prepared)
		}
		if errors.Is(err, lifecycle.ErrConflict) {
			s.metrics.RecordConflict(ctx, entity)
		}
		saved = prepared
		return err
	})
	if err != nil {
		return -1, domain.Submission{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "submission")
	action := "vec.submit"
	metadata := map[string]any{"index": index, "submission_date": saved.SubmissionDate}
	if req.DraftIndex != nil {
		s.metrics.RecordPromotion(ctx, entity)
		action = "vec.draft.promote"
		metadata["draft_index"] = *req.DraftIndex
	}
	s.record(ctx, action, req.Hamlet, metadata)
	return index, saved, nil
}

func (s *Service) Edit(ctx context.Context, req domain.EditRequest) (domain.Submission, error) {
	var saved domain.Submission
	_, err := s.mutate(ctx, req.Hamlet, authorization.ActionEdit, func(tx *gorm.DB, v *domain.VEC, book *lifecycle.Book[domain.Submission]) error {
		current, err := book.Editable(req.Index)
		if err != nil {
			return err
		}
		entry := req.Submission
		if strings.TrimSpace(entry.SubmissionDate) == "" {
			return lifecycle.Validation("submission_date", "submission_date is required")
		}
		if entry.IssueImg == nil {
			entry.IssueImg = current.IssueImg
		}

		prepared, err := s.prepare(ctx, tx, v.Hamlet, entry, book.Submissions, req.Index)
		if err != nil {
			return err
		}
		if err := book.Edit(req.Index, prepared); err != nil {
			if errors.Is(err, lifecycle.ErrConflict) {
				s.metrics.RecordConflict(ctx, entity)
			}
			return err
		}
		saved = prepared
		return nil
	})
	if err != nil {
		return domain.Submission{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "edit")
	s.record(ctx, "vec.edit", req.Hamlet, map[string]any{"index": req.Index, "submission_date": saved.SubmissionDate})
	return saved, nil
}

func (s *Service) RemoveSubmission(ctx context.Context, hamlet string, index int) error {
	var removed domain.Submission
	_, err := s.mutate(ctx, hamlet, authorization.ActionRemove, func(_ *gorm.DB, _ *domain.VEC, book *lifecycle.Book[domain.Submission]) error {
		var err error
		removed, err = book.DeleteSubmission(index)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "vec.submission.remove", hamlet, map[string]any{"index": index, "submission_date": removed.SubmissionDate})
	return nil
}

// prepare recomputes the report's derived figures. Savings carry over from
// the submissions positioned before index before; with none, the entered
// total stands.
func (s *Service) prepare(ctx context.Context, tx *gorm.DB, hamlet string, entry domain.Submission, subs []domain.Submission, before int) (domain.Submission, error) {
	entry.SubmissionDate = strings.TrimSpace(entry.SubmissionDate)

	collected, err := s.collected(ctx, tx, hamlet, entry.SubmissionDate)
	if err != nil {
		return entry, err
	}
	opening, hasOpening := ledger.VECOpeningSavings(subs, before)

	figures := billing.ComputeVEC(billing.VECInput{
		AmountCollected:     collected,
		AmountOtherSource:   entry.AmountOtherSource,
		Expenditure:         entry.Expenditure,
		AmountBank:          entry.AmountBank,
		OpeningSavings:      opening,
		HasOpening:          hasOpening,
		EnteredTotalSavings: entry.TotalSavings,
	})
	if hasOpening && !entry.TotalSavings.Empty() && !entry.TotalSavings.Decimal().Equal(figures.TotalSavings) {
		return entry, lifecycle.Validation("total_savings", "total_savings is computed from the previous submission and cannot be changed")
	}

	entry.AmountCollected = money.Format2(figures.AmountCollected)
	entry.TotalCollected = money.Format2(figures.TotalCollected)
	entry.SavingsMonth = money.Format2(figures.SavingsMonth)
	entry.TotalSavings = money.Format2(figures.TotalSavings)
	entry.AmountHand = money.Format2(figures.AmountHand)
	return entry, nil
}

func (s *Service) load(ctx context.Context, hamlet, action string) (*domain.VEC, error) {
	if domain.Key(hamlet) == "" {
		return nil, lifecycle.Validation("hamlet", "hamlet is required")
	}
	// the path names the hamlet, so scope is checked before the lookup
	if err := s.authz.AuthorizeHamlet(ctx, authorization.ObjectVEC, action, hamlet); err != nil {
		return nil, err
	}
	v, err := s.repo.FindByHamlet(ctx, s.db, hamlet)
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	if v == nil {
		return nil, lifecycle.NotFound(domain.MsgNotFound)
	}
	return v, nil
}

// mutate applies fn to the committee's entry lists under the entity lock
// and a transaction.
func (s *Service) mutate(ctx context.Context, hamlet, action string, fn func(tx *gorm.DB, v *domain.VEC, book *lifecycle.Book[domain.Submission]) error) (*domain.VEC, error) {
	v, err := s.load(ctx, hamlet, action)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(v.Hamlet))
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	defer unlock()

	var saved *domain.VEC
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, v.Hamlet)
		if err != nil {
			return err
		}
		if current == nil {
			return lifecycle.NotFound(domain.MsgNotFound)
		}

		book := lifecycle.NewBook([]domain.Submission(current.Submissions), []domain.Submission(current.Drafts))
		if err := fn(tx, current, book); err != nil {
			return err
		}

		current.Submissions = datatypes.JSONSlice[domain.Submission](book.Submissions)
		current.Drafts = datatypes.JSONSlice[domain.Submission](book.Drafts)
		current.UpdatedAt = s.clock.Now()
		if err := s.repo.SaveEntries(ctx, tx, current); err != nil {
			return err
		}
		saved = current
		return nil
	})
	if err != nil {
		if !authorization.IsDenied(err) {
			err = lifecycle.Store(err)
		}
		if errors.Is(err, lifecycle.ErrStore) {
			s.log.Error("vec write failed", zap.String("hamlet", v.Hamlet), zap.Error(err))
		}
		return nil, err
	}
	return saved, nil
}

func (s *Service) record(ctx context.Context, action, hamlet string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AuditLog(ctx, action, entity, strings.TrimSpace(hamlet), metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func lockKey(hamlet string) string {
	return "vec:" + domain.Key(hamlet)
}
