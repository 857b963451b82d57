// Package testutil builds the in-memory store and caller contexts shared
// by service tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/microgrid/internal/actorcontext"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/smallbiznis/microgrid/internal/entitylock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenDB returns a fresh shared-cache in-memory database migrated with
// models.
func OpenDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if len(models) > 0 {
		require.NoError(t, conn.AutoMigrate(models...))
	}
	return conn
}

// Authz returns the casbin-backed authorization service over conn.
func Authz(t *testing.T, conn *gorm.DB) authorization.Service {
	t.Helper()
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	return authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})
}

// Locker returns an in-process entity lock manager.
func Locker() entitylock.Locker {
	return entitylock.NewManager(config.Config{LockTTL: time.Second}, nil, zap.NewNop())
}

func SPOC() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{Username: "saraipani_spoc", Role: actorcontext.RoleSPOC})
}

func Operator(hamlet string) context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{Username: "op_" + hamlet, Role: actorcontext.RoleOperator, Hamlet: hamlet})
}

func Committee() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{Username: "insurance_committee_user", Role: actorcontext.RoleInsuranceCommittee})
}
