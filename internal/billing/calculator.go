package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/microgrid/internal/money"
)

var ErrMeterRegression = errors.New("meter_regression")

// Tariff holds the household rate card.
type Tariff struct {
	PerUnit     decimal.Decimal
	FixedCharge decimal.Decimal
}

// DefaultTariff is ₹10 per unit plus a ₹100 fixed charge.
func DefaultTariff() Tariff {
	return Tariff{
		PerUnit:     decimal.NewFromInt(10),
		FixedCharge: decimal.NewFromInt(100),
	}
}

// TariffSource yields the tariff in force.
type TariffSource interface {
	Tariff() Tariff
}

type staticTariff Tariff

func (t staticTariff) Tariff() Tariff { return Tariff(t) }

// StaticTariff returns a source that always yields t.
func StaticTariff(t Tariff) TariffSource {
	return staticTariff(t)
}

// Input is a household reading as entered.
type Input struct {
	MeterRead  money.Text
	PrevRead   money.Text
	PastDue    money.Text
	AmountPaid money.Text
	Issues     Issues
}

// Bill is the calculator output. When Suppressed is set the remaining
// fields are zero and must not be presented.
type Bill struct {
	Suppressed    bool
	NetConsumed   decimal.Decimal
	CurrentBill   decimal.Decimal
	TotalDue      decimal.Decimal
	AmountBalance decimal.Decimal
}

type Calculator struct {
	source TariffSource
}

func NewCalculator(source TariffSource) *Calculator {
	if source == nil {
		source = StaticTariff(DefaultTariff())
	}
	return &Calculator{source: source}
}

// Compute derives consumption and bill figures for a reading.
func (c *Calculator) Compute(in Input) Bill {
	if in.Issues.Suppressed() {
		return Bill{Suppressed: true}
	}

	tariff := c.source.Tariff()
	meter := in.MeterRead.Decimal()
	prev := in.PrevRead.Decimal()

	consumed := decimal.Zero
	if meter.GreaterThanOrEqual(prev) {
		consumed = meter.Sub(prev)
	}

	var current decimal.Decimal
	switch {
	case in.Issues.Has(IssuePartialWaiveFixedCharge):
		current = consumed.Mul(tariff.PerUnit)
	case in.Issues.Has(IssuePartialWaiveTariff):
		current = tariff.FixedCharge
	default:
		current = consumed.Mul(tariff.PerUnit).Add(tariff.FixedCharge)
	}
	current = money.Round2(current)

	total := money.Round2(current.Add(money.Round2(in.PastDue.Decimal())))
	balance := money.Round2(total.Sub(money.Round2(in.AmountPaid.Decimal())))

	return Bill{
		NetConsumed:   consumed.Round(1),
		CurrentBill:   current,
		TotalDue:      total,
		AmountBalance: balance,
	}
}

// ValidateMeterReading rejects a reading below the previous one unless
// billing is suppressed for it. An empty meter reading is not checked.
func ValidateMeterReading(meterRead, prevRead money.Text, issues Issues) error {
	if issues.Suppressed() || meterRead.Empty() {
		return nil
	}
	meter := meterRead.Decimal()
	prev := prevRead.Decimal()
	if meter.LessThan(prev) {
		return fmt.Errorf("%w: current meter reading %s cannot be less than previous reading %s",
			ErrMeterRegression, meter.String(), prev.String())
	}
	return nil
}
