package export

import (
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	"github.com/smallbiznis/microgrid/internal/money"
)

func renderReceipt(h hhdomain.Household, sub hhdomain.Submission, printed time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Electricity Bill", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "Bill ID: "+sub.BillID, props.Text{Size: 9, Align: align.Right, Top: 4}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(h.HHName, props.Text{Style: fontstyle.Bold}),
			text.New("Customer ID: "+h.CustomerID, props.Text{Top: 5}),
			text.New("Meter: "+h.MeterNum, props.Text{Top: 10}),
			text.New("Hamlet: "+h.Hamlet, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New(h.VECName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(h.Village+", "+h.Block, props.Text{Top: 5, Align: align.Right}),
			text.New(h.District+", "+h.State, props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Reading date: "+sub.ReadDate, props.Text{Size: 9}),
		text.NewCol(6, "Printed: "+printed.Format("2006-01-02"), props.Text{Size: 9, Align: align.Right}),
	)

	lines := [][2]string{
		{"Previous reading", sub.PrevRead.String()},
		{"Current reading", sub.MeterRead.String()},
		{"Units consumed", sub.NetConsumed.String()},
		{"Current bill", amount(sub.CurrentBill)},
		{"Past due", amount(sub.PastDue)},
		{"Total due", amount(sub.TotalDue)},
		{"Amount paid", amount(sub.AmountPaid)},
		{"Balance", amount(sub.AmountBalance)},
	}
	for _, line := range lines {
		m.AddRow(8,
			text.NewCol(8, line[0], props.Text{Size: 10}),
			text.NewCol(4, line[1], props.Text{Size: 10, Align: align.Right}),
		)
	}

	if issues := sub.IndividualIssues.String(); issues != "" {
		m.AddRow(12,
			text.NewCol(12, "Issues: "+issues, props.Text{Size: 9, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func amount(v money.Text) string {
	if v.Empty() {
		return "-"
	}
	return "Rs. " + v.String()
}
