package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/household/domain"
	"github.com/smallbiznis/microgrid/internal/household/repository"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	"github.com/smallbiznis/microgrid/internal/money"
	"github.com/smallbiznis/microgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn := testutil.OpenDB(t, &domain.Household{})
	return New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)),
		Repo:       repository.Provide(),
		Locker:     testutil.Locker(),
		Authz:      testutil.Authz(t, conn),
		Calculator: billing.NewCalculator(nil),
	})
}

func seedHousehold(t *testing.T, svc domain.Service, customerID, hamlet string) {
	t.Helper()
	_, err := svc.Create(testutil.SPOC(), domain.CreateRequest{
		CustomerID: customerID,
		HHName:     "Albert Ekka",
		Hamlet:     hamlet,
		MeterNum:   "M12345",
	})
	require.NoError(t, err)
}

func reading(date, meter, prev string) domain.Submission {
	return domain.Submission{
		ReadDate:  date,
		MeterRead: money.Text(meter),
		PrevRead:  money.Text(prev),
	}
}

func TestSubmitComputesBill(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	idx, sub, err := svc.Submit(ctx, domain.SubmitRequest{
		CustomerID: "39",
		Submission: reading("2024-01-10", "150", "100"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, money.Text("50.0"), sub.NetConsumed)
	assert.Equal(t, money.Text("600.00"), sub.CurrentBill)
	assert.Equal(t, money.Text("600.00"), sub.TotalDue)
	assert.Equal(t, money.Text("600.00"), sub.AmountBalance)
	assert.Equal(t, money.Text("0"), sub.PastDue)
	assert.True(t, strings.HasPrefix(sub.BillID, "BILL-"))

	t.Run("tariff waiver", func(t *testing.T) {
		seedHousehold(t, svc, "3", "Saraipani")
		entry := reading("2024-01-10", "500", "100")
		entry.IndividualIssues = billing.Issues{string(billing.IssuePartialWaiveTariff)}
		_, sub, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "3", Submission: entry})
		require.NoError(t, err)
		assert.Equal(t, money.Text("100.00"), sub.CurrentBill)
	})

	t.Run("suppressed bill leaves derived fields empty", func(t *testing.T) {
		seedHousehold(t, svc, "35", "Saraipani")
		entry := reading("2024-01-10", "10", "100")
		entry.IndividualIssues = billing.Issues{string(billing.IssueMigrated)}
		_, sub, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "35", Submission: entry})
		require.NoError(t, err)
		assert.True(t, sub.CurrentBill.Empty())
		assert.True(t, sub.AmountBalance.Empty())
	})
}

func TestSubmitCarriesBalanceForward(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-10", "150", "100")})
	require.NoError(t, err)

	form, err := svc.Form(ctx, "39")
	require.NoError(t, err)
	assert.True(t, form.Locked)
	assert.Equal(t, "150", form.PrevRead)
	assert.Equal(t, "600.00", form.PastDue)
	assert.Equal(t, "2024-03-15", form.ReadDate)

	_, sub, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-02-10", "170", "")})
	require.NoError(t, err)
	assert.Equal(t, money.Text("150"), sub.PrevRead)
	assert.Equal(t, money.Text("600.00"), sub.PastDue)
	assert.Equal(t, money.Text("900.00"), sub.TotalDue)

	t.Run("carried fields reject different values", func(t *testing.T) {
		entry := reading("2024-03-10", "200", "170")
		entry.PastDue = "0"
		_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: entry})
		require.Error(t, err)
		assert.True(t, errors.Is(err, lifecycle.ErrValidation))
	})
}

func TestSubmitSameMonthConflicts(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-10", "150", "100")})
	require.NoError(t, err)

	_, _, err = svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-28", "180", "")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrConflict))
	assert.Equal(t, lifecycle.MsgMonthExists, err.Error())

	h, err := svc.Get(ctx, "39")
	require.NoError(t, err)
	assert.Len(t, h.Submissions, 1)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("", "150", "100")})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	_, _, err = svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-10", "90", "100")})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	_, _, err = svc.Submit(ctx, domain.SubmitRequest{CustomerID: "missing", Submission: reading("2024-01-10", "150", "100")})
	assert.True(t, errors.Is(err, lifecycle.ErrNotFound))
	assert.Equal(t, domain.MsgNotFound, err.Error())
}

func TestDraftPromotion(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	photo := "/Uploads/meter_image-1.jpg"
	draft := reading("2024-01-10", "", "100")
	draft.MeterImage = &photo
	idx, saved, err := svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Draft: draft})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, money.Text("0"), saved.PastDue)

	promote := 0
	_, sub, err := svc.Submit(ctx, domain.SubmitRequest{
		CustomerID: "39",
		Submission: reading("2024-01-10", "150", "100"),
		DraftIndex: &promote,
	})
	require.NoError(t, err)
	require.NotNil(t, sub.MeterImage)
	assert.Equal(t, photo, *sub.MeterImage)

	h, err := svc.Get(ctx, "39")
	require.NoError(t, err)
	assert.Len(t, h.Submissions, 1)
	assert.Len(t, h.Drafts, 0)

	t.Run("invalid draft index", func(t *testing.T) {
		bad := 4
		_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-02-10", "160", ""), DraftIndex: &bad})
		assert.True(t, errors.Is(err, lifecycle.ErrNotFound))
		assert.Equal(t, "Invalid draft index", err.Error())
	})

	t.Run("conflicting promotion keeps the draft", func(t *testing.T) {
		_, _, err := svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Draft: reading("2024-01-20", "", "")})
		require.NoError(t, err)
		_, _, err = svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-20", "160", ""), DraftIndex: &promote})
		assert.True(t, errors.Is(err, lifecycle.ErrConflict))

		h, err := svc.Get(ctx, "39")
		require.NoError(t, err)
		assert.Len(t, h.Submissions, 1)
		assert.Len(t, h.Drafts, 1)
	})
}

func TestUpdateDraftLocking(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	_, _, err := svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Draft: reading("2024-01-10", "", "100")})
	require.NoError(t, err)

	first := 0
	_, saved, err := svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Index: &first, Draft: reading("2024-01-11", "", "120")})
	require.NoError(t, err, "a lone draft stays editable")
	assert.Equal(t, money.Text("120"), saved.PrevRead)

	_, _, err = svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Draft: reading("2024-02-10", "", "130")})
	require.NoError(t, err)

	_, _, err = svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Index: &first, Draft: reading("2024-01-11", "", "999")})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	require.NoError(t, svc.DeleteDraft(ctx, "39", 1))
	err = svc.DeleteDraft(ctx, "39", 1)
	assert.True(t, errors.Is(err, lifecycle.ErrNotFound))
	assert.Equal(t, "Draft not found", err.Error())
}

func TestEditAndRemove(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	spoc := testutil.SPOC()

	paid := reading("2024-01-10", "150", "100")
	paid.AmountPaid = "600"
	_, _, err := svc.Submit(spoc, domain.SubmitRequest{CustomerID: "39", Submission: paid})
	require.NoError(t, err)
	_, _, err = svc.Submit(spoc, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-02-10", "170", "")})
	require.NoError(t, err)
	_, _, err = svc.Submit(spoc, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-03-10", "190", "")})
	require.NoError(t, err)

	_, err = svc.Edit(spoc, domain.EditRequest{CustomerID: "39", Index: 0, Submission: reading("2024-01-10", "160", "100")})
	assert.True(t, errors.Is(err, lifecycle.ErrImmutable))

	edited, err := svc.Edit(spoc, domain.EditRequest{CustomerID: "39", Index: 1, Submission: reading("2024-02-12", "180", "")})
	require.NoError(t, err)
	assert.Equal(t, money.Text("150"), edited.PrevRead)
	assert.Equal(t, money.Text("30.0"), edited.NetConsumed)

	_, err = svc.Edit(spoc, domain.EditRequest{CustomerID: "39", Index: 1, Submission: reading("2024-03-01", "180", "")})
	assert.True(t, errors.Is(err, lifecycle.ErrConflict))

	t.Run("operators cannot edit or remove", func(t *testing.T) {
		op := testutil.Operator("Saraipani")
		_, err := svc.Edit(op, domain.EditRequest{CustomerID: "39", Index: 1, Submission: reading("2024-02-12", "180", "")})
		assert.True(t, errors.Is(err, authorization.ErrForbidden))
		assert.True(t, errors.Is(svc.RemoveSubmission(op, "39", 1), authorization.ErrForbidden))
	})

	require.NoError(t, svc.RemoveSubmission(spoc, "39", 1))
	h, err := svc.Get(spoc, "39")
	require.NoError(t, err)
	require.Len(t, h.Submissions, 2)
	assert.Equal(t, "2024-03-10", h.Submissions[1].ReadDate)

	err = svc.RemoveSubmission(spoc, "39", 0)
	assert.True(t, errors.Is(err, lifecycle.ErrImmutable))
}

func TestOperatorHamletScope(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	seedHousehold(t, svc, "77", "Barkibiura")

	_, err := svc.Get(testutil.Operator("Barkibiura"), "39")
	assert.True(t, errors.Is(err, authorization.ErrForbidden))

	rows, err := svc.ListSummaries(testutil.Operator("saraipani"), "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "39", rows[0].CustomerID)

	_, err = svc.List(testutil.Operator("Saraipani"), "Barkibiura")
	assert.True(t, errors.Is(err, authorization.ErrForbidden))

	all, err := svc.List(testutil.SPOC(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Create(testutil.Operator("Saraipani"), domain.CreateRequest{CustomerID: "1", HHName: "x", Hamlet: "Saraipani"})
	assert.True(t, errors.Is(err, authorization.ErrForbidden))

	_, err = svc.Get(context.Background(), "39")
	assert.True(t, errors.Is(err, authorization.ErrInvalidActor))
}

func TestImportClearDeleteStats(t *testing.T) {
	svc := newTestService(t)
	spoc := testutil.SPOC()
	seedHousehold(t, svc, "39", "Saraipani")

	res, err := svc.Import(spoc, []domain.ImportRow{
		{CustomerID: "39", HHName: "Albert Ekka", Hamlet: "Saraipani"},
		{CustomerID: "3", HHName: "Anand Toppo", Hamlet: " Saraipani "},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, int64(1), res.Inserted)

	h, err := svc.Get(spoc, "3")
	require.NoError(t, err)
	assert.Equal(t, "Saraipani", h.Hamlet)
	assert.True(t, strings.HasPrefix(h.MeterNum, "M-"))

	_, err = svc.Import(spoc, []domain.ImportRow{{HHName: "no id", Hamlet: "Saraipani"}})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	_, err = svc.Create(spoc, domain.CreateRequest{CustomerID: "39", HHName: "dup", Hamlet: "Saraipani"})
	assert.True(t, errors.Is(err, lifecycle.ErrConflict))

	_, _, err = svc.Submit(spoc, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-10", "150", "100")})
	require.NoError(t, err)

	cleared, err := svc.Clear(spoc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)
	h, err = svc.Get(spoc, "39")
	require.NoError(t, err)
	assert.Empty(t, h.Submissions)

	stats, err := svc.Stats(spoc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)

	require.NoError(t, svc.Delete(spoc, "3"))
	assert.True(t, errors.Is(svc.Delete(spoc, "3"), lifecycle.ErrNotFound))
}

func TestConcurrentSubmitsForSameMonth(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-10", "150", "100")})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	h, err := svc.Get(ctx, "39")
	require.NoError(t, err)
	assert.Len(t, h.Submissions, 1)
}

func TestZeroPaymentClosesSubmission(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	spoc := testutil.SPOC()

	entry := reading("2024-01-10", "150", "100")
	entry.AmountPaid = "0"
	_, _, err := svc.Submit(spoc, domain.SubmitRequest{CustomerID: "39", Submission: entry})
	require.NoError(t, err)

	_, err = svc.Edit(spoc, domain.EditRequest{CustomerID: "39", Index: 0, Submission: reading("2024-01-10", "160", "100")})
	assert.True(t, errors.Is(err, lifecycle.ErrImmutable))

	err = svc.RemoveSubmission(spoc, "39", 0)
	assert.True(t, errors.Is(err, lifecycle.ErrImmutable))

	h, err := svc.Get(spoc, "39")
	require.NoError(t, err)
	require.Len(t, h.Submissions, 1)
	assert.Equal(t, money.Text("150"), h.Submissions[0].MeterRead)
}

func TestDraftsFollowTheLedger(t *testing.T) {
	svc := newTestService(t)
	seedHousehold(t, svc, "39", "Saraipani")
	ctx := testutil.Operator("Saraipani")

	_, _, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-01-10", "150", "100")})
	require.NoError(t, err)
	_, stale, err := svc.SaveDraft(ctx, domain.DraftRequest{CustomerID: "39", Draft: reading("2024-03-10", "", "")})
	require.NoError(t, err)
	assert.Equal(t, money.Text("150"), stale.PrevRead)
	assert.Equal(t, money.Text("600.00"), stale.PastDue)

	_, _, err = svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: reading("2024-02-10", "170", "")})
	require.NoError(t, err)

	h, err := svc.Get(ctx, "39")
	require.NoError(t, err)
	require.Len(t, h.Drafts, 1)
	assert.Equal(t, money.Text("170"), h.Drafts[0].PrevRead)
	assert.Equal(t, money.Text("900.00"), h.Drafts[0].PastDue)

	promote := 0
	draft := h.Drafts[0]
	draft.MeterRead = "200"
	_, sub, err := svc.Submit(ctx, domain.SubmitRequest{CustomerID: "39", Submission: draft, DraftIndex: &promote})
	require.NoError(t, err, "the stored draft promotes as read back")
	assert.Equal(t, money.Text("170"), sub.PrevRead)
	assert.Equal(t, money.Text("900.00"), sub.PastDue)
	assert.Equal(t, money.Text("1300.00"), sub.TotalDue)
}
