package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/microgrid/internal/actorcontext"
	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	actor, ok := actorcontext.ActorFromContext(ctx)
	if !ok || (actor.Role != actorcontext.RoleSystem && actor.Username == "") {
		return ErrInvalidActor
	}

	subject := actor.Subject()
	if err := s.ensureGrouping(subject, "role:"+actor.Role); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, object, action, "")
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) AuthorizeHamlet(ctx context.Context, object string, action string, hamlet string) error {
	if err := s.Authorize(ctx, object, action); err != nil {
		return err
	}
	actor, _ := actorcontext.ActorFromContext(ctx)
	if actor.Role != actorcontext.RoleOperator {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(actor.Hamlet), strings.TrimSpace(hamlet)) {
		s.auditDenied(ctx, actor, object, action, hamlet)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role binding per subject, so a role
// change on the user row takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor actorcontext.Actor, object, action, hamlet string) {
	s.log.Warn("authorization denied",
		zap.String("actor", actor.Username),
		zap.String("role", actor.Role),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"object": object,
		"action": action,
		"role":   actor.Role,
	}
	if hamlet != "" {
		metadata["hamlet"] = hamlet
	}
	_ = s.auditSvc.AuditLog(ctx, "authorization.denied", "authorization", object, metadata)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string
	grant := func(role, object string, actions ...string) {
		for _, action := range actions {
			policies = append(policies, []string{"role:" + role, object, action})
		}
	}

	grant(actorcontext.RoleOperator, ObjectHousehold, ActionView, ActionDraft, ActionSubmit)
	grant(actorcontext.RoleOperator, ObjectVEC, ActionView, ActionDraft, ActionSubmit)
	grant(actorcontext.RoleOperator, ObjectInsurance, ActionView, ActionDraft, ActionSubmit)
	grant(actorcontext.RoleOperator, ObjectStats, ActionView)

	entityActions := []string{
		ActionView, ActionCreate, ActionDraft, ActionSubmit, ActionEdit,
		ActionRemove, ActionDelete, ActionClear, ActionImport,
	}
	grant(actorcontext.RoleSPOC, ObjectHousehold, entityActions...)
	grant(actorcontext.RoleSPOC, ObjectVEC, entityActions...)
	grant(actorcontext.RoleSPOC, ObjectInsurance, ActionView, ActionViewAll, ActionDraft, ActionSubmit)
	grant(actorcontext.RoleSPOC, ObjectUser, ActionManage)
	grant(actorcontext.RoleSPOC, ObjectAuditLog, ActionView)
	grant(actorcontext.RoleSPOC, ObjectStats, ActionView)
	grant(actorcontext.RoleSPOC, ObjectExport, ActionExport)

	grant(actorcontext.RoleInsuranceCommittee, ObjectInsurance, ActionView, ActionViewAll)
	grant(actorcontext.RoleInsuranceCommittee, ObjectHousehold, ActionView)
	grant(actorcontext.RoleInsuranceCommittee, ObjectVEC, ActionView)
	grant(actorcontext.RoleInsuranceCommittee, ObjectStats, ActionView)

	// startup jobs: seeding and imports run as system
	grant(actorcontext.RoleSystem, ObjectHousehold, ActionCreate, ActionImport, ActionView)
	grant(actorcontext.RoleSystem, ObjectVEC, ActionCreate, ActionImport, ActionView)
	grant(actorcontext.RoleSystem, ObjectUser, ActionManage)

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
