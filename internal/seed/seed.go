package seed

import (
	"context"
	"fmt"

	"github.com/smallbiznis/microgrid/internal/actorcontext"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
	"go.uber.org/zap"
)

const (
	demoHamlet  = "Saraipani"
	demoVECName = "Prakash Saur Oorja Samiti"
)

var demoUsers = []authdomain.CreateUserRequest{
	{Username: "saraipani_op", Password: "password123", Role: actorcontext.RoleOperator, Hamlet: demoHamlet},
	{Username: "saraipani_spoc", Password: "spocpass456", Role: actorcontext.RoleSPOC},
	{Username: "insurance_committee_user", Password: "icpassword789", Role: actorcontext.RoleInsuranceCommittee},
}

func demoHouseholds() []hhdomain.ImportRow {
	people := []struct{ id, name, meter string }{
		{"Saraipani/39", "Albert Ekka", "M12345"},
		{"3", "Anand Toppo", "M12346"},
		{"35", "Ananimas Xalxo", "M12347"},
		{"6", "Anjela Toppo", "M12348"},
	}
	rows := make([]hhdomain.ImportRow, 0, len(people))
	for _, p := range people {
		rows = append(rows, hhdomain.ImportRow{
			CustomerID: p.id,
			HHName:     p.name,
			Hamlet:     demoHamlet,
			State:      "Jharkhand",
			District:   "Dumka",
			Block:      "Kurdeg",
			GP:         "Barkibiura",
			Village:    demoHamlet,
			VECName:    demoVECName,
			MeterNum:   p.meter,
		})
	}
	return rows
}

func demoVECs() []vecdomain.ImportRow {
	return []vecdomain.ImportRow{{
		Hamlet:      demoHamlet,
		VECName:     demoVECName,
		State:       "Jharkhand",
		District:    "Dumka",
		Block:       "Kurdeg",
		GP:          "Barkibiura",
		Village:     demoHamlet,
		MicrogridID: "MG-SARAIPANI",
	}}
}

// Seeder loads the demo accounts and the Saraipani microgrid.
type Seeder struct {
	Auth       authdomain.Service
	Households hhdomain.Service
	VECs       vecdomain.Service
	Log        *zap.Logger
}

// EnsureDemoData is idempotent: existing users and entities are left as
// they are.
func (s Seeder) EnsureDemoData(ctx context.Context) error {
	ctx = actorcontext.System(ctx)

	for _, req := range demoUsers {
		if _, err := s.Auth.EnsureUser(ctx, req); err != nil {
			return fmt.Errorf("seed user %s: %w", req.Username, err)
		}
	}

	hh, err := s.Households.Import(ctx, demoHouseholds())
	if err != nil {
		return fmt.Errorf("seed households: %w", err)
	}
	vec, err := s.VECs.Import(ctx, demoVECs())
	if err != nil {
		return fmt.Errorf("seed vecs: %w", err)
	}

	s.Log.Info("demo data ensured",
		zap.Int("users", len(demoUsers)),
		zap.Int64("households_inserted", hh.Inserted),
		zap.Int64("vecs_inserted", vec.Inserted),
	)
	return nil
}
