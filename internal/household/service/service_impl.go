package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/entitylock"
	"github.com/smallbiznis/microgrid/internal/household/domain"
	"github.com/smallbiznis/microgrid/internal/ledger"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	"github.com/smallbiznis/microgrid/internal/money"
	"github.com/smallbiznis/microgrid/internal/observability/metrics"
	"github.com/smallbiznis/microgrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const entity = "household"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Locker     entitylock.Locker
	Authz      authorization.Service
	Calculator *billing.Calculator
	Audit      auditdomain.Service `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	locker  entitylock.Locker
	authz   authorization.Service
	calc    *billing.Calculator
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("household.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		locker:  p.Locker,
		authz:   p.Authz,
		calc:    p.Calculator,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context, customerID string) (domain.Household, error) {
	h, err := s.load(ctx, customerID, authorization.ActionView)
	if err != nil {
		return domain.Household{}, err
	}
	return *h, nil
}

func (s *Service) List(ctx context.Context, hamlet string) ([]domain.Household, error) {
	hamlet, err := s.scope(ctx, hamlet)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{Hamlet: hamlet})
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	out := make([]domain.Household, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) ListSummaries(ctx context.Context, hamlet string) ([]domain.Summary, error) {
	hamlet, err := s.scope(ctx, hamlet)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSummaries(ctx, s.db, domain.ListFilter{Hamlet: hamlet})
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	if rows == nil {
		rows = []domain.Summary{}
	}
	return rows, nil
}

func (s *Service) scope(ctx context.Context, hamlet string) (string, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectHousehold, authorization.ActionView); err != nil {
		return "", err
	}
	return authorization.ScopedHamlet(ctx, hamlet)
}

func (s *Service) Form(ctx context.Context, customerID string) (domain.Form, error) {
	h, err := s.load(ctx, customerID, authorization.ActionView)
	if err != nil {
		return domain.Form{}, err
	}
	open := ledger.HouseholdOpening([]domain.Submission(h.Submissions))
	return domain.Form{
		ReadDate: clock.Today(s.clock),
		PrevRead: open.PrevRead.String(),
		PastDue:  open.PastDue.String(),
		BillID:   s.newBillID(),
		Locked:   open.Locked,
	}, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Household, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectHousehold, authorization.ActionCreate); err != nil {
		return domain.Household{}, err
	}
	h, err := s.newHousehold(req)
	if err != nil {
		return domain.Household{}, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(h.CustomerID))
	if err != nil {
		return domain.Household{}, lifecycle.Store(err)
	}
	defer unlock()

	if err := s.repo.Insert(ctx, s.db, h); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Household{}, lifecycle.Conflict(domain.MsgExists)
		}
		return domain.Household{}, lifecycle.Store(err)
	}
	s.record(ctx, "household.create", h.CustomerID, map[string]any{"hamlet": h.Hamlet})
	return *h, nil
}

func (s *Service) newHousehold(req domain.CreateRequest) (*domain.Household, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return nil, lifecycle.Validation("customer_id", "customer_id is required")
	}
	name := strings.TrimSpace(req.HHName)
	if name == "" {
		return nil, lifecycle.Validation("hh_name", "hh_name is required")
	}
	hamlet := strings.TrimSpace(req.Hamlet)
	if hamlet == "" {
		return nil, lifecycle.Validation("hamlet", "hamlet is required")
	}
	now := s.clock.Now()
	return &domain.Household{
		CustomerID:  customerID,
		HHName:      name,
		Hamlet:      hamlet,
		State:       strings.TrimSpace(req.State),
		District:    strings.TrimSpace(req.District),
		Block:       strings.TrimSpace(req.Block),
		GP:          strings.TrimSpace(req.GP),
		Village:     strings.TrimSpace(req.Village),
		VECName:     strings.TrimSpace(req.VECName),
		MeterNum:    strings.TrimSpace(req.MeterNum),
		Submissions: datatypes.JSONSlice[domain.Submission]{},
		Drafts:      datatypes.JSONSlice[domain.Submission]{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Service) Delete(ctx context.Context, customerID string) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectHousehold, authorization.ActionDelete); err != nil {
		return err
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return lifecycle.Validation("customer_id", "customer_id is required")
	}

	unlock, err := s.locker.Lock(ctx, lockKey(customerID))
	if err != nil {
		return lifecycle.Store(err)
	}
	defer unlock()

	affected, err := s.repo.Delete(ctx, s.db, customerID)
	if err != nil {
		return lifecycle.Store(err)
	}
	if affected == 0 {
		return lifecycle.NotFound(domain.MsgNotFound)
	}
	s.record(ctx, "household.delete", customerID, nil)
	return nil
}

func (s *Service) Clear(ctx context.Context) (int64, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectHousehold, authorization.ActionClear); err != nil {
		return 0, err
	}
	affected, err := s.repo.ClearEntries(ctx, s.db)
	if err != nil {
		return 0, lifecycle.Store(err)
	}
	s.record(ctx, "household.clear", "", map[string]any{"households": affected})
	return affected, nil
}

func (s *Service) Import(ctx context.Context, rows []domain.ImportRow) (domain.ImportResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectHousehold, authorization.ActionImport); err != nil {
		return domain.ImportResult{}, err
	}

	households := make([]domain.Household, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.MeterNum) == "" {
			row.MeterNum = fmt.Sprintf("M-%d-%d", s.clock.Now().UnixMilli(), rand.Intn(1000))
		}
		h, err := s.newHousehold(row)
		if err != nil {
			var lerr *lifecycle.Error
			if errors.As(err, &lerr) {
				return domain.ImportResult{}, lifecycle.Validation(lerr.Field, fmt.Sprintf("row %d: %s", i+1, lerr.Message))
			}
			return domain.ImportResult{}, err
		}
		households = append(households, *h)
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.InsertIgnore(ctx, tx, households)
		inserted = n
		return err
	})
	if err != nil {
		return domain.ImportResult{}, lifecycle.Store(err)
	}

	s.metrics.RecordImport(ctx, entity, len(rows))
	s.record(ctx, "household.import", "", map[string]any{"rows": len(rows), "inserted": inserted})
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
	return domain.Stats{Count: count}, nil
}

func (s *Service) SaveDraft(ctx context.Context, req domain.DraftRequest) (int, domain.Submission, error) {
	var (
		index int
		saved domain.Submission
	)
	_, err := s.mutate(ctx, req.CustomerID, authorization.ActionDraft, func(book *lifecycle.Book[domain.Submission]) error {
		draft := req.Draft
		open := carry(ledger.HouseholdOpening(book.Submissions))

		if req.Index == nil {
			prepared, err := s.prepare(draft, open, false)
			if err != nil {
				return err
			}
			index = book.AddDraft(prepared)
			saved = prepared
			return nil
		}

		index = *req.Index
		current, err := book.Draft(index)
		if err != nil {
			return err
		}
		if len(book.Submissions) == 0 {
			open = opening{}
			if len(book.Drafts) > 1 {
				open = opening{PrevRead: current.PrevRead, PastDue: current.PastDue, Locked: true}
			}
		}
		keepAttachments(&draft, current)
		prepared, err := s.prepare(draft, open, false)
		if err != nil {
			return err
		}
		saved = prepared
		return book.UpdateDraft(index, prepared)
	})
	if err != nil {
		return -1, domain.Submission{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "draft")
	s.record(ctx, "household.draft.save", req.CustomerID, map[string]any{"draft_index": index, "read_date": saved.ReadDate})
	return index, saved, nil
}

func (s *Service) DeleteDraft(ctx context.Context, customerID string, index int) error {
	_, err := s.mutate(ctx, customerID, authorization.ActionDraft, func(book *lifecycle.Book[domain.Submission]) error {
		_, err := book.DeleteDraft(index)
		return err
	})
	if err != nil {
		return err
	}
	s.record(ctx, "household.draft.delete", customerID, map[string]any{"draft_index": index})
	return nil
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (int, domain.Submission, error) {
	var (
		index int
		saved domain.Submission
	)
	_, err := s.mutate(ctx, req.CustomerID, authorization.ActionSubmit, func(book *lifecycle.Book[domain.Submission]) error {
		entry := req.Submission
		if req.DraftIndex != nil {
			draftIndex := *req.DraftIndex
			if draftIndex < 0 || draftIndex >= len(book.Drafts) {
				return lifecycle.NotFound("Invalid draft index")
			}
			keepAttachments(&entry, book.Drafts[draftIndex])
		}

		prepared, err := s.prepare(entry, carry(ledger.HouseholdOpening(book.Submissions)), true)
		if err != nil {
			return err
		}

		if req.DraftIndex != nil {
			index, err = book.Promote(*req.DraftIndex, prepared)
		} else {
			index, err = book.Submit(prepared)
		}
		if err != nil {
			if errors.Is(err, lifecycle.ErrConflict) {
				s.metrics.RecordConflict(ctx, entity)
			}
			return err
		}
		saved = prepared
		return s.refreshDrafts(book)
	})
	if err != nil {
		return -1, domain.Submission{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "submission")
	action := "household.submit"
	metadata := map[string]any{"index": index, "read_date": saved.ReadDate, "bill_id": saved.BillID}
	if req.DraftIndex != nil {
		s.metrics.RecordPromotion(ctx, entity)
		action = "household.draft.promote"
		metadata["draft_index"] = *req.DraftIndex
	}
	s.record(ctx, action, req.CustomerID, metadata)
	return index, saved, nil
}

func (s *Service) Edit(ctx context.Context, req domain.EditRequest) (domain.Submission, error) {
	var saved domain.Submission
	_, err := s.mutate(ctx, req.CustomerID, authorization.ActionEdit, func(book *lifecycle.Book[domain.Submission]) error {
		current, err := book.Editable(req.Index)
		if err != nil {
			return err
		}
		open := opening{}
		if len(book.Submissions) > 1 || req.Index != 0 {
			open = opening{PrevRead: current.PrevRead, PastDue: current.PastDue, Locked: true}
		}

		entry := req.Submission
		keepAttachments(&entry, current)
		prepared, err := s.prepare(entry, open, true)
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
		return s.refreshDrafts(book)
	})
	if err != nil {
		return domain.Submission{}, err
	}

	s.metrics.RecordEntry(ctx, entity, "edit")
	s.record(ctx, "household.edit", req.CustomerID, map[string]any{"index": req.Index, "read_date": saved.ReadDate})
	return saved, nil
}

func (s *Service) RemoveSubmission(ctx context.Context, customerID string, index int) error {
	var removed domain.Submission
	_, err := s.mutate(ctx, customerID, authorization.ActionRemove, func(book *lifecycle.Book[domain.Submission]) error {
		var err error
		if removed, err = book.DeleteSubmission(index); err != nil {
			return err
		}
		return s.refreshDrafts(book)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "household.submission.remove", customerID, map[string]any{"index": index, "read_date": removed.ReadDate})
	return nil
}

// load reads a household outside any transaction and checks the caller
// may act on its hamlet.
func (s *Service) load(ctx context.Context, customerID, action string) (*domain.Household, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, lifecycle.Validation("customer_id", "customer_id is required")
	}
	h, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	if h == nil {
		return nil, lifecycle.NotFound(domain.MsgNotFound)
	}
	if err := s.authz.AuthorizeHamlet(ctx, authorization.ObjectHousehold, action, h.Hamlet); err != nil {
		return nil, err
	}
	return h, nil
}

// mutate applies fn to the household's entry lists under the entity lock
// and a transaction. Authorization runs before the lock is taken.
func (s *Service) mutate(ctx context.Context, customerID, action string, fn func(book *lifecycle.Book[domain.Submission]) error) (*domain.Household, error) {
	h, err := s.load(ctx, customerID, action)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lockKey(h.CustomerID))
	if err != nil {
		return nil, lifecycle.Store(err)
	}
	defer unlock()

	var saved *domain.Household
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, h.CustomerID)
		if err != nil {
			return err
		}
		if current == nil {
			return lifecycle.NotFound(domain.MsgNotFound)
		}

		book := lifecycle.NewBook([]domain.Submission(current.Submissions), []domain.Submission(current.Drafts))
		book.Closed = domain.Submission.Closed
		if err := fn(book); err != nil {
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
			s.log.Error("household write failed", zap.String("customer_id", h.CustomerID), zap.Error(err))
		}
		return nil, err
	}
	return saved, nil
}

type opening struct {
	PrevRead money.Text
	PastDue  money.Text
	Locked   bool
}

func carry(o ledger.Opening) opening {
	if !o.Locked {
		return opening{}
	}
	return opening{PrevRead: o.PrevRead, PastDue: o.PastDue, Locked: true}
}

// prepare applies carried values, validates and recomputes the derived
// bill fields. Submissions additionally need a read date and a meter
// reading no lower than the previous one.
func (s *Service) prepare(entry domain.Submission, open opening, submission bool) (domain.Submission, error) {
	entry.ReadDate = strings.TrimSpace(entry.ReadDate)
	entry.BillID = strings.TrimSpace(entry.BillID)
	if submission && entry.ReadDate == "" {
		return entry, lifecycle.Validation("read_date", "read_date is required")
	}

	if open.Locked {
		var err error
		if entry.PrevRead, err = lockField("prev_read", entry.PrevRead, open.PrevRead); err != nil {
			return entry, err
		}
		if entry.PastDue, err = lockField("past_due", entry.PastDue, open.PastDue); err != nil {
			return entry, err
		}
	} else if entry.PastDue.Empty() {
		entry.PastDue = "0"
	}

	if submission {
		if err := billing.ValidateMeterReading(entry.MeterRead, entry.PrevRead, entry.IndividualIssues); err != nil {
			return entry, lifecycle.Validation("meter_read", "Current meter reading cannot be less than the previous reading")
		}
	}

	bill := s.calc.Compute(billing.Input{
		MeterRead:  entry.MeterRead,
		PrevRead:   entry.PrevRead,
		PastDue:    entry.PastDue,
		AmountPaid: entry.AmountPaid,
		Issues:     entry.IndividualIssues,
	})
	if bill.Suppressed {
		entry.NetConsumed, entry.CurrentBill, entry.TotalDue, entry.AmountBalance = "", "", "", ""
	} else {
		entry.NetConsumed = money.Format1(bill.NetConsumed)
		entry.CurrentBill = money.Format2(bill.CurrentBill)
		entry.TotalDue = money.Format2(bill.TotalDue)
		entry.AmountBalance = money.Format2(bill.AmountBalance)
	}

	if entry.BillID == "" {
		entry.BillID = s.newBillID()
	}
	return entry, nil
}

// refreshDrafts rebases every stored draft on the current closing
// reading and balance so a later promotion carries matching values.
// Without submissions the drafts keep their own opening values.
func (s *Service) refreshDrafts(book *lifecycle.Book[domain.Submission]) error {
	open := carry(ledger.HouseholdOpening(book.Submissions))
	if !open.Locked {
		return nil
	}
	for i, draft := range book.Drafts {
		draft.PrevRead, draft.PastDue = "", ""
		prepared, err := s.prepare(draft, open, false)
		if err != nil {
			return err
		}
		if err := book.UpdateDraft(i, prepared); err != nil {
			return err
		}
	}
	return nil
}

// lockField fills an empty value from the ledger and rejects one that
// differs from it.
func lockField(field string, entered, carried money.Text) (money.Text, error) {
	if entered.Empty() || money.Equal(entered, carried) {
		return carried, nil
	}
	return entered, lifecycle.Validation(field, field+" is carried forward from the previous submission and cannot be changed")
}

func keepAttachments(entry *domain.Submission, existing domain.Submission) {
	if entry.IssueImg == nil {
		entry.IssueImg = existing.IssueImg
	}
	if entry.MeterImage == nil {
		entry.MeterImage = existing.MeterImage
	}
}

func (s *Service) newBillID() string {
	now := s.clock.Now()
	return "BILL-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

func (s *Service) record(ctx context.Context, action, customerID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AuditLog(ctx, action, entity, customerID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func lockKey(customerID string) string {
	return "hh:" + customerID
}
