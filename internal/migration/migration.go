package migration

import (
	"context"
	"errors"
	"fmt"

	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	insurancedomain "github.com/smallbiznis/microgrid/internal/insurance/domain"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
	"gorm.io/gorm"
)

// Models lists every table owned by the application. The casbin policy
// table is created by its adapter.
func Models() []interface{} {
	return []interface{}{
		&hhdomain.Household{},
		&vecdomain.VEC{},
		&insurancedomain.Claim{},
		&authdomain.User{},
		&authdomain.Session{},
		&auditdomain.AuditLog{},
	}
}

// RunMigrations brings the schema up to date. Existing rows are kept.
func RunMigrations(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
