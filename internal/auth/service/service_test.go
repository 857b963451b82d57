package service

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/microgrid/internal/actorcontext"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	"github.com/smallbiznis/microgrid/internal/auth/repository"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/smallbiznis/microgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	conn := testutil.OpenDB(t, &authdomain.User{}, &authdomain.Session{})
	repo, sessionRepo := repository.New(conn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Now())

	svc := New(Params{
		Log:         zap.NewNop(),
		Cfg:         config.Config{SessionTTL: time.Hour},
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       clk,
		Authz:       testutil.Authz(t, conn),
	})
	return svc, clk
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, clk := newTestService(t)
	spoc := testutil.SPOC()

	_, err := svc.AddOperator(spoc, authdomain.CreateUserRequest{Username: "saraipani_op", Password: "password123", Hamlet: "Saraipani"})
	require.NoError(t, err)

	_, err = svc.Login(spoc, authdomain.LoginRequest{Username: "saraipani_op", Password: "wrong-password"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
	_, err = svc.Login(spoc, authdomain.LoginRequest{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	result, err := svc.Login(spoc, authdomain.LoginRequest{Username: "saraipani_op", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, actorcontext.RoleOperator, result.Role)
	require.NotNil(t, result.Hamlet)
	assert.Equal(t, "Saraipani", *result.Hamlet)
	assert.NotEmpty(t, result.RawToken)

	user, err := svc.Authenticate(spoc, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, "saraipani_op", user.Username)

	_, err = svc.Authenticate(spoc, "not-a-token")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)

	clk.Advance(2 * time.Hour)
	_, err = svc.Authenticate(spoc, result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestLogoutRevokes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorcontext.System(testutil.SPOC())

	_, err := svc.EnsureUser(ctx, authdomain.CreateUserRequest{Username: "saraipani_spoc", Password: "spocpass456", Role: "spoc"})
	require.NoError(t, err)
	again, err := svc.EnsureUser(ctx, authdomain.CreateUserRequest{Username: "saraipani_spoc", Password: "ignored1", Role: "spoc"})
	require.NoError(t, err)
	assert.Equal(t, "spoc", again.Role)

	result, err := svc.Login(ctx, authdomain.LoginRequest{Username: "saraipani_spoc", Password: "spocpass456"})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, result.RawToken))

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestOperatorManagement(t *testing.T) {
	svc, _ := newTestService(t)
	spoc := testutil.SPOC()
	system := actorcontext.System(spoc)

	_, err := svc.EnsureUser(system, authdomain.CreateUserRequest{Username: "insurance_committee_user", Password: "icpassword789", Role: "insurance_committee"})
	require.NoError(t, err)

	_, err = svc.AddOperator(spoc, authdomain.CreateUserRequest{Username: "op1", Password: "secret1"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidHamlet)
	_, err = svc.AddOperator(spoc, authdomain.CreateUserRequest{Username: "op1", Password: "123", Hamlet: "A"})
	assert.Error(t, err)

	_, err = svc.AddOperator(spoc, authdomain.CreateUserRequest{Username: "op1", Password: "secret1", Hamlet: "A"})
	require.NoError(t, err)
	_, err = svc.AddOperator(spoc, authdomain.CreateUserRequest{Username: "op1", Password: "secret1", Hamlet: "B"})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)

	ops, err := svc.ListOperators(spoc)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "op1", ops[0].Username)

	_, err = svc.ListOperators(testutil.Operator("A"))
	assert.True(t, errors.Is(err, authorization.ErrForbidden))

	assert.ErrorIs(t, svc.RemoveOperator(spoc, "insurance_committee_user"), authdomain.ErrNotOperator)
	require.NoError(t, svc.RemoveOperator(spoc, "op1"))
	assert.ErrorIs(t, svc.RemoveOperator(spoc, "op1"), authdomain.ErrUserNotFound)
}
