// Package bulkimport reads household and VEC master data from CSV uploads.
package bulkimport

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type householdCSV struct {
	CustomerID string `csv:"customer_id"`
	HHName     string `csv:"hh_name"`
	Hamlet     string `csv:"hamlet"`
	State      string `csv:"state"`
	District   string `csv:"district"`
	Block      string `csv:"block"`
	GP         string `csv:"gp"`
	Village    string `csv:"village"`
	VECName    string `csv:"vec_name"`
	MeterNum   string `csv:"meter_num"`
}

type vecCSV struct {
	Hamlet      string `csv:"hamlet"`
	VECName     string `csv:"vec_name"`
	State       string `csv:"state"`
	District    string `csv:"district"`
	Block       string `csv:"block"`
	GP          string `csv:"gp"`
	Village     string `csv:"village"`
	MicrogridID string `csv:"microgrid_id"`
}

// ParseHouseholds decodes a household CSV with a header row. Unknown
// columns are ignored.
func ParseHouseholds(r io.Reader) ([]hhdomain.ImportRow, error) {
	var records []householdCSV
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, lifecycle.Validation("file", fmt.Sprintf("invalid CSV: %v", err))
	}
	rows := make([]hhdomain.ImportRow, 0, len(records))
	for i, rec := range records {
		row := hhdomain.ImportRow{
			CustomerID: strings.TrimSpace(rec.CustomerID),
			HHName:     strings.TrimSpace(rec.HHName),
			Hamlet:     strings.TrimSpace(rec.Hamlet),
			State:      strings.TrimSpace(rec.State),
			District:   strings.TrimSpace(rec.District),
			Block:      strings.TrimSpace(rec.Block),
			GP:         strings.TrimSpace(rec.GP),
			Village:    strings.TrimSpace(rec.Village),
			VECName:    strings.TrimSpace(rec.VECName),
			MeterNum:   strings.TrimSpace(rec.MeterNum),
		}
		if row.CustomerID == "" {
			return nil, lifecycle.Validation("customer_id", fmt.Sprintf("row %d: customer_id is required", i+1))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseVECs decodes a VEC CSV with a header row.
func ParseVECs(r io.Reader) ([]vecdomain.ImportRow, error) {
	var records []vecCSV
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, lifecycle.Validation("file", fmt.Sprintf("invalid CSV: %v", err))
	}
	rows := make([]vecdomain.ImportRow, 0, len(records))
	for i, rec := range records {
		row := vecdomain.ImportRow{
			Hamlet:      strings.TrimSpace(rec.Hamlet),
			VECName:     strings.TrimSpace(rec.VECName),
			State:       strings.TrimSpace(rec.State),
			District:    strings.TrimSpace(rec.District),
			Block:       strings.TrimSpace(rec.Block),
			GP:          strings.TrimSpace(rec.GP),
			Village:     strings.TrimSpace(rec.Village),
			MicrogridID: strings.TrimSpace(rec.MicrogridID),
		}
		if row.Hamlet == "" {
			return nil, lifecycle.Validation("hamlet", fmt.Sprintf("row %d: hamlet is required", i+1))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Importer parses an upload and hands the rows to the owning service.
type Importer struct {
	households hhdomain.Service
	vecs       vecdomain.Service
	log        *zap.Logger
}

type Params struct {
	fx.In

	Households hhdomain.Service
	VECs       vecdomain.Service
	Log        *zap.Logger
}

func NewImporter(p Params) *Importer {
	return &Importer{households: p.Households, vecs: p.VECs, log: p.Log.Named("bulkimport")}
}

func (i *Importer) Households(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ParseHouseholds(r)
	if err != nil {
		return 0, err
	}
	result, err := i.households.Import(ctx, rows)
	if err != nil {
		return 0, err
	}
	i.log.Info("household upload completed", zap.Int("rows", result.Count), zap.Int64("inserted", result.Inserted))
	return result.Count, nil
}

func (i *Importer) VECs(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ParseVECs(r)
	if err != nil {
		return 0, err
	}
	result, err := i.vecs.Import(ctx, rows)
	if err != nil {
		return 0, err
	}
	i.log.Info("vec upload completed", zap.Int("rows", result.Count), zap.Int64("inserted", result.Inserted))
	return result.Count, nil
}

var Module = fx.Module("bulkimport",
	fx.Provide(NewImporter),
)
