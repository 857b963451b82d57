package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type sheet struct {
	name    string
	headers []string
	rows    [][]string
}

func householdSheet(rows []HouseholdRow) sheet {
	out := sheet{
		name:    "Households",
		headers: []string{"Customer ID", "HH Name", "Hamlet", "Date", "Meter Reading", "Units Consumed", "Current Bill", "Past Due", "Total Due", "Amount Paid", "Balance", "Bill ID"},
	}
	for _, r := range rows {
		out.rows = append(out.rows, []string{r.CustomerID, r.HHName, r.Hamlet, r.Date, r.MeterReading, r.UnitsConsumed, r.CurrentBill, r.PastDue, r.TotalDue, r.AmountPaid, r.Balance, r.BillID})
	}
	return out
}

func vecSheet(rows []VECRow) sheet {
	out := sheet{
		name:    "VEC",
		headers: []string{"Hamlet", "VEC Name", "Date", "Amount Collected", "Other Source", "Total Collected", "Expenditure", "Savings This Month", "Total Savings", "Amount In Bank", "Amount In Hand"},
	}
	for _, r := range rows {
		out.rows = append(out.rows, []string{r.Hamlet, r.VECName, r.Date, r.AmountCollected, r.OtherSource, r.TotalCollected, r.Expenditure, r.SavingsMonth, r.TotalSavings, r.AmountBank, r.AmountHand})
	}
	return out
}

func claimSheet(rows []ClaimRow) sheet {
	out := sheet{
		name:    "Insurance",
		headers: []string{"Hamlet", "VEC Name", "Claim Ref Number", "Claim Date", "Claiming For", "Status"},
	}
	for _, r := range rows {
		out.rows = append(out.rows, []string{r.Hamlet, r.VECName, r.ClaimRefNumber, r.ClaimDate, r.ClaimingFor, r.Status})
	}
	return out
}

func newWorkbook(sheets []sheet) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				_ = f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := writeSheet(f, sh, headerStyle); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sh sheet, headerStyle int) error {
	header := make([]interface{}, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(sh.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sh.name, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sh.name, "A", lastCol, 18); err != nil {
		return err
	}

	for r, row := range sh.rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
