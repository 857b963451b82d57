package authorization

import (
	"context"
	"errors"
)

const (
	ObjectHousehold = "household"
	ObjectVEC       = "vec"
	ObjectInsurance = "insurance"
	ObjectUser      = "user"
	ObjectAuditLog  = "audit_log"
	ObjectStats     = "stats"
	ObjectExport    = "export"
)

const (
	ActionView    = "view"
	ActionViewAll = "view_all"
	ActionCreate  = "create"
	ActionDraft   = "draft"
	ActionSubmit  = "submit"
	ActionEdit    = "edit"
	ActionRemove  = "remove"
	ActionDelete  = "delete"
	ActionClear   = "clear"
	ActionImport  = "import"
	ActionExport  = "export"
	ActionManage  = "manage"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service checks whether the actor in ctx may perform action on object.
type Service interface {
	Authorize(ctx context.Context, object string, action string) error
	// AuthorizeHamlet additionally confines operators to their own hamlet.
	AuthorizeHamlet(ctx context.Context, object string, action string, hamlet string) error
}

// IsDenied reports whether err is an authorization failure.
func IsDenied(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidActor)
}
