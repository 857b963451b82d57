package ledger

import (
	"testing"

	"github.com/smallbiznis/microgrid/internal/money"
	"github.com/stretchr/testify/assert"
)

type hhRow struct {
	date    string
	meter   money.Text
	balance money.Text
	paid    money.Text
}

func (r hhRow) MonthDate() string { return r.date }
func (r hhRow) ClosingReading() money.Text { return r.meter }
func (r hhRow) ClosingBalance() money.Text { return r.balance }
func (r hhRow) PaidAmount() money.Text { return r.paid }

type vecRow struct {
	date    string
	savings money.Text
}

func (r vecRow) MonthDate() string { return r.date }
func (r vecRow) RunningSavings() money.Text { return r.savings }

func TestHouseholdOpening(t *testing.T) {
	t.Run("no submissions", func(t *testing.T) {
		open := HouseholdOpening([]hhRow{})
		assert.False(t, open.Locked)
		assert.Equal(t, money.Text("0"), open.PastDue)
		assert.True(t, open.PrevRead.Empty())
	})

	t.Run("carries last entry in list order", func(t *testing.T) {
		open := HouseholdOpening([]hhRow{
			{date: "2024-03-01", meter: "300", balance: "10.00"},
			{date: "2024-01-01", meter: "150", balance: "600.00"},
		})
		assert.True(t, open.Locked)
		assert.Equal(t, money.Text("150"), open.PrevRead)
		assert.Equal(t, money.Text("600.00"), open.PastDue)
	})

	t.Run("suppressed bill carries zero", func(t *testing.T) {
		open := HouseholdOpening([]hhRow{{date: "2024-01-01", meter: "150"}})
		assert.Equal(t, money.Text("0"), open.PastDue)
	})
}

func TestVECOpeningSavings(t *testing.T) {
	subs := []vecRow{
		{date: "2024-02-01", savings: "200.00"},
		{date: "2024-04-01", savings: "400.00"},
		{date: "2024-03-01", savings: "300.00"},
		{date: "", savings: "999.00"},
	}

	v, ok := VECOpeningSavings(subs, len(subs))
	assert.True(t, ok)
	assert.Equal(t, "400", v.String())

	v, ok = VECOpeningSavings(subs, 1)
	assert.True(t, ok)
	assert.Equal(t, "200", v.String())

	_, ok = VECOpeningSavings(subs, 0)
	assert.False(t, ok)

	v, ok = VECOpeningSavings([]vecRow{{savings: "50"}}, 1)
	assert.True(t, ok)
	assert.True(t, v.IsZero())

	v, ok = VECOpeningSavings([]vecRow{
		{date: "2024-05-01", savings: "1"},
		{date: "2024-05-01", savings: "2"},
	}, -1)
	assert.True(t, ok)
	assert.Equal(t, "1", v.String())
}

func TestCollectedForMonth(t *testing.T) {
	rows := []hhRow{
		{date: "2024-05-03", paid: "100"},
		{date: "2024-05-28", paid: "250.50"},
		{date: "2024-06-01", paid: "999"},
		{date: "2024-05-10", paid: ""},
		{date: "2024-05-11", paid: "oops"},
	}
	assert.Equal(t, money.Text("350.50"), money.Format2(CollectedForMonth(rows, "2024-05-15")))
	assert.Equal(t, money.Text("999.00"), money.Format2(CollectedForMonth(rows, "2024-06")))
	assert.True(t, CollectedForMonth(rows, "").IsZero())
}
