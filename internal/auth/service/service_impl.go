package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/microgrid/internal/actorcontext"
	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	"github.com/smallbiznis/microgrid/internal/auth/domain"
	"github.com/smallbiznis/microgrid/internal/auth/password"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/smallbiznis/microgrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sessionTokenBytes = 32

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	GenID       *snowflake.Node
	Clock       clock.Clock
	Authz       authorization.Service
	Audit       auditdomain.Service `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
	clock       clock.Clock
	authz       authorization.Service
	audit       auditdomain.Service
	sessionTTL  time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		genID:       p.GenID,
		clock:       p.Clock,
		authz:       p.Authz,
		audit:       p.Audit,
		sessionTTL:  ttl,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Info("login rejected", zap.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(s.sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		Username:  user.Username,
		Role:      user.Role,
		Hamlet:    user.Hamlet,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}
	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now().UTC())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	now := s.clock.Now().UTC()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) EnsureUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectUser, authorization.ActionManage); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	return s.create(ctx, req)
}

func (s *Service) ListOperators(ctx context.Context) ([]domain.User, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectUser, authorization.ActionManage); err != nil {
		return nil, err
	}
	users, err := s.repo.ListByRole(ctx, actorcontext.RoleOperator)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

func (s *Service) AddOperator(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectUser, authorization.ActionManage); err != nil {
		return nil, err
	}
	req.Role = actorcontext.RoleOperator
	user, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "user.operator.add", user.Username, map[string]any{"hamlet": user.HamletName()})
	return user, nil
}

func (s *Service) RemoveOperator(ctx context.Context, username string) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectUser, authorization.ActionManage); err != nil {
		return err
	}
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if user.Role != actorcontext.RoleOperator {
		return domain.ErrNotOperator
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	if err := s.sessionRepo.RevokeUserSessions(ctx, user.ID, s.clock.Now().UTC()); err != nil {
		s.log.Warn("failed to revoke sessions", zap.String("username", user.Username), zap.Error(err))
	}
	s.record(ctx, "user.operator.remove", user.Username, nil)
	return nil
}

func (s *Service) create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, err
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case actorcontext.RoleOperator, actorcontext.RoleSPOC, actorcontext.RoleInsuranceCommittee:
	default:
		return nil, domain.ErrInvalidRole
	}

	var hamlet *string
	if h := strings.TrimSpace(req.Hamlet); h != "" {
		hamlet = &h
	}
	if role == actorcontext.RoleOperator && hamlet == nil {
		return nil, domain.ErrInvalidHamlet
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		Hamlet:       hamlet,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) record(ctx context.Context, action, username string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AuditLog(ctx, action, "user", username, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
