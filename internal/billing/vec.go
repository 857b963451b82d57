package billing

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/microgrid/internal/money"
)

// VECInput carries a committee's monthly figures. AmountCollected is the
// household collection aggregate for the month, not a typed value.
type VECInput struct {
	AmountCollected   decimal.Decimal
	AmountOtherSource money.Text
	Expenditure       money.Text
	AmountBank        money.Text

	// OpeningSavings is used when HasOpening is set; otherwise the entered
	// total is taken as is.
	OpeningSavings      decimal.Decimal
	HasOpening          bool
	EnteredTotalSavings money.Text
}

type VECFigures struct {
	AmountCollected decimal.Decimal
	TotalCollected  decimal.Decimal
	SavingsMonth    decimal.Decimal
	TotalSavings    decimal.Decimal
	AmountHand      decimal.Decimal
}

// ComputeVEC derives the committee's collection, savings and cash figures.
func ComputeVEC(in VECInput) VECFigures {
	collected := money.Round2(in.AmountCollected)
	totalCollected := money.Round2(collected.Add(in.AmountOtherSource.Decimal()))
	savings := money.Round2(totalCollected.Sub(in.Expenditure.Decimal()))

	var totalSavings decimal.Decimal
	if in.HasOpening {
		totalSavings = money.Round2(in.OpeningSavings.Add(savings))
	} else {
		totalSavings = money.Round2(in.EnteredTotalSavings.Decimal())
	}

	return VECFigures{
		AmountCollected: collected,
		TotalCollected:  totalCollected,
		SavingsMonth:    savings,
		TotalSavings:    totalSavings,
		AmountHand:      money.Round2(totalSavings.Sub(in.AmountBank.Decimal())),
	}
}
