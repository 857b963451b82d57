package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	authrepo "github.com/smallbiznis/microgrid/internal/auth/repository"
	authservice "github.com/smallbiznis/microgrid/internal/auth/service"
	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	hhrepo "github.com/smallbiznis/microgrid/internal/household/repository"
	hhservice "github.com/smallbiznis/microgrid/internal/household/service"
	"github.com/smallbiznis/microgrid/internal/migration"
	"github.com/smallbiznis/microgrid/internal/testutil"
	vecrepo "github.com/smallbiznis/microgrid/internal/vec/repository"
	vecservice "github.com/smallbiznis/microgrid/internal/vec/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	conn := testutil.OpenDB(t, migration.Models()...)
	authz := testutil.Authz(t, conn)
	locker := testutil.Locker()
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	users, sessions := authrepo.New(conn)
	households := hhrepo.Provide()
	s := Seeder{
		Auth: authservice.New(authservice.Params{
			Log: zap.NewNop(), Cfg: config.Config{SessionTTL: time.Hour},
			Repo: users, SessionRepo: sessions, GenID: node, Clock: clk, Authz: authz,
		}),
		Households: hhservice.New(hhservice.Params{
			DB: conn, Log: zap.NewNop(), Clock: clk, Repo: households,
			Locker: locker, Authz: authz, Calculator: billing.NewCalculator(nil),
		}),
		VECs: vecservice.New(vecservice.Params{
			DB: conn, Log: zap.NewNop(), Clock: clk, Repo: vecrepo.Provide(),
			Households: households, Locker: locker, Authz: authz,
		}),
		Log: zap.NewNop(),
	}

	require.NoError(t, s.EnsureDemoData(context.Background()))
	require.NoError(t, s.EnsureDemoData(context.Background()))

	var count int64
	require.NoError(t, conn.Table("households").Count(&count).Error)
	assert.Equal(t, int64(4), count)
	require.NoError(t, conn.Table("vecs").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, conn.Model(&authdomain.User{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	result, err := s.Auth.Login(context.Background(), authdomain.LoginRequest{Username: "saraipani_op", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, result.Hamlet)
	assert.Equal(t, "Saraipani", *result.Hamlet)
}
