package ledger

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	"github.com/smallbiznis/microgrid/internal/money"
)

// Reading is a household submission seen by the ledger.
type Reading interface {
	MonthDate() string
	ClosingReading() money.Text
	ClosingBalance() money.Text
	PaidAmount() money.Text
}

// Saving is a committee submission seen by the ledger.
type Saving interface {
	MonthDate() string
	RunningSavings() money.Text
}

// Opening is the carried-in state for a new household period.
type Opening struct {
	PrevRead money.Text
	PastDue  money.Text
	// Locked is set once a prior submission exists; the opening values
	// then come from the ledger only.
	Locked bool
}

// HouseholdOpening carries the last submission's meter reading and
// balance into the next period. List order decides which entry is last.
func HouseholdOpening[T Reading](submissions []T) Opening {
	if len(submissions) == 0 {
		return Opening{PrevRead: "", PastDue: "0"}
	}
	last := submissions[len(submissions)-1]
	pastDue := last.ClosingBalance()
	if pastDue.Empty() {
		pastDue = "0"
	}
	return Opening{
		PrevRead: last.ClosingReading(),
		PastDue:  pastDue,
		Locked:   true,
	}
}

// VECOpeningSavings returns the total savings of the latest-dated
// submission among those positioned before index before. Entries without
// a date are skipped; on equal dates the earlier position wins. The bool
// is false when there is no prior submission.
func VECOpeningSavings[T Saving](submissions []T, before int) (decimal.Decimal, bool) {
	if before > len(submissions) || before < 0 {
		before = len(submissions)
	}
	prior := submissions[:before]
	if len(prior) == 0 {
		return decimal.Zero, false
	}

	var latest T
	found := false
	for _, sub := range prior {
		date := strings.TrimSpace(sub.MonthDate())
		if date == "" {
			continue
		}
		if !found || date > strings.TrimSpace(latest.MonthDate()) {
			latest = sub
			found = true
		}
	}
	if !found {
		return decimal.Zero, true
	}
	return latest.RunningSavings().Decimal(), true
}

// CollectedForMonth sums amount paid across readings in month.
func CollectedForMonth[T Reading](readings []T, month string) decimal.Decimal {
	month = lifecycle.MonthKey(month)
	if month == "" {
		return decimal.Zero
	}
	inMonth := lo.Filter(readings, func(r T, _ int) bool {
		return lifecycle.MonthKey(r.MonthDate()) == month
	})
	total := lo.Reduce(inMonth, func(sum decimal.Decimal, r T, _ int) decimal.Decimal {
		return sum.Add(r.PaidAmount().Decimal())
	}, decimal.Zero)
	return money.Round2(total)
}
