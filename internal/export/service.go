// Package export renders household, committee and claim records as CSV,
// XLSX and PDF.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/clock"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	insdomain "github.com/smallbiznis/microgrid/internal/insurance/domain"
	"github.com/smallbiznis/microgrid/internal/lifecycle"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DatasetHouseholds = "hh"
	DatasetVECs       = "vec"
	DatasetClaims     = "insurance"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Authz      authorization.Service
	Households hhdomain.Service
	VECs       vecdomain.Service
	Claims     insdomain.Service
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	authz      authorization.Service
	households hhdomain.Service
	vecs       vecdomain.Service
	claims     insdomain.Service
}

func New(p Params) *Service {
	return &Service{
		log:        p.Log.Named("export.service"),
		clock:      p.Clock,
		authz:      p.Authz,
		households: p.Households,
		vecs:       p.VECs,
		claims:     p.Claims,
	}
}

// FileName returns the download name for dataset with ext.
func (s *Service) FileName(dataset, ext string) string {
	return fmt.Sprintf("%s-export-%s.%s", dataset, s.clock.Now().Format("20060102"), ext)
}

// WriteCSV writes one dataset as CSV with a header row.
func (s *Service) WriteCSV(ctx context.Context, dataset string, w io.Writer) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectExport, authorization.ActionExport); err != nil {
		return err
	}

	var (
		rows interface{}
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(dataset)) {
	case DatasetHouseholds:
		rows, err = s.householdRows(ctx)
	case DatasetVECs:
		rows, err = s.vecRows(ctx)
	case DatasetClaims:
		rows, err = s.claimRows(ctx)
	default:
		return lifecycle.Validation("dataset", "unknown export dataset")
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteXLSX writes all datasets as one workbook, a sheet each.
func (s *Service) WriteXLSX(ctx context.Context, w io.Writer) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectExport, authorization.ActionExport); err != nil {
		return err
	}
	hh, err := s.householdRows(ctx)
	if err != nil {
		return err
	}
	vec, err := s.vecRows(ctx)
	if err != nil {
		return err
	}
	claims, err := s.claimRows(ctx)
	if err != nil {
		return err
	}

	book, err := newWorkbook([]sheet{
		householdSheet(hh),
		vecSheet(vec),
		claimSheet(claims),
	})
	if err != nil {
		return err
	}
	defer book.Close()
	return book.Write(w)
}

// Receipt renders the bill of one household submission as PDF. Anyone
// who may view the household may print its receipt.
func (s *Service) Receipt(ctx context.Context, customerID string, index int) ([]byte, error) {
	h, err := s.households.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(h.Submissions) {
		return nil, lifecycle.NotFound("Invalid submission index")
	}
	doc, err := renderReceipt(h, h.Submissions[index], s.clock.Now())
	if err != nil {
		s.log.Error("receipt render failed", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}
	return doc, nil
}
