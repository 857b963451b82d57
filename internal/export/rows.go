package export

import (
	"context"

	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	insdomain "github.com/smallbiznis/microgrid/internal/insurance/domain"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
)

// HouseholdRow is one household submission in export form.
type HouseholdRow struct {
	CustomerID    string `csv:"Customer ID"`
	HHName        string `csv:"HH Name"`
	Hamlet        string `csv:"Hamlet"`
	Date          string `csv:"Date"`
	MeterReading  string `csv:"Meter Reading"`
	UnitsConsumed string `csv:"Units Consumed"`
	CurrentBill   string `csv:"Current Bill"`
	PastDue       string `csv:"Past Due"`
	TotalDue      string `csv:"Total Due"`
	AmountPaid    string `csv:"Amount Paid"`
	Balance       string `csv:"Balance"`
	BillID        string `csv:"Bill ID"`
}

type VECRow struct {
	Hamlet          string `csv:"Hamlet"`
	VECName         string `csv:"VEC Name"`
	Date            string `csv:"Date"`
	AmountCollected string `csv:"Amount Collected"`
	OtherSource     string `csv:"Other Source"`
	TotalCollected  string `csv:"Total Collected"`
	Expenditure     string `csv:"Expenditure"`
	SavingsMonth    string `csv:"Savings This Month"`
	TotalSavings    string `csv:"Total Savings"`
	AmountBank      string `csv:"Amount In Bank"`
	AmountHand      string `csv:"Amount In Hand"`
}

type ClaimRow struct {
	Hamlet         string `csv:"Hamlet"`
	VECName        string `csv:"VEC Name"`
	ClaimRefNumber string `csv:"Claim Ref Number"`
	ClaimDate      string `csv:"Claim Date"`
	ClaimingFor    string `csv:"Claiming For"`
	Status         string `csv:"Status"`
}

func (s *Service) householdRows(ctx context.Context) ([]HouseholdRow, error) {
	households, err := s.households.List(ctx, "")
	if err != nil {
		return nil, err
	}
	rows := []HouseholdRow{}
	for _, h := range households {
		for _, sub := range h.Submissions {
			rows = append(rows, householdRow(h, sub))
		}
	}
	return rows, nil
}

func householdRow(h hhdomain.Household, sub hhdomain.Submission) HouseholdRow {
	return HouseholdRow{
		CustomerID:    h.CustomerID,
		HHName:        h.HHName,
		Hamlet:        h.Hamlet,
		Date:          sub.ReadDate,
		MeterReading:  sub.MeterRead.String(),
		UnitsConsumed: sub.NetConsumed.String(),
		CurrentBill:   sub.CurrentBill.String(),
		PastDue:       sub.PastDue.String(),
		TotalDue:      sub.TotalDue.String(),
		AmountPaid:    sub.AmountPaid.String(),
		Balance:       sub.AmountBalance.String(),
		BillID:        sub.BillID,
	}
}

func (s *Service) vecRows(ctx context.Context) ([]VECRow, error) {
	vecs, err := s.vecs.List(ctx, "")
	if err != nil {
		return nil, err
	}
	rows := []VECRow{}
	for _, v := range vecs {
		for _, sub := range v.Submissions {
			rows = append(rows, vecRow(v, sub))
		}
	}
	return rows, nil
}

func vecRow(v vecdomain.VEC, sub vecdomain.Submission) VECRow {
	return VECRow{
		Hamlet:          v.Hamlet,
		VECName:         v.VECName,
		Date:            sub.SubmissionDate,
		AmountCollected: sub.AmountCollected.String(),
		OtherSource:     sub.AmountOtherSource.String(),
		TotalCollected:  sub.TotalCollected.String(),
		Expenditure:     sub.Expenditure.String(),
		SavingsMonth:    sub.SavingsMonth.String(),
		TotalSavings:    sub.TotalSavings.String(),
		AmountBank:      sub.AmountBank.String(),
		AmountHand:      sub.AmountHand.String(),
	}
}

func (s *Service) claimRows(ctx context.Context) ([]ClaimRow, error) {
	claims, err := s.claims.ListAll(ctx, insdomain.StatusSubmitted)
	if err != nil {
		return nil, err
	}
	rows := make([]ClaimRow, 0, len(claims))
	for _, c := range claims {
		rows = append(rows, ClaimRow{
			Hamlet:         c.Hamlet,
			VECName:        c.VECName,
			ClaimRefNumber: c.ClaimRefNumber,
			ClaimDate:      c.ClaimDate,
			ClaimingFor:    c.ClaimingFor,
			Status:         c.Status,
		})
	}
	return rows, nil
}
