package authorization

import (
	"context"
	"errors"
)

// Service answers whether an actor may perform an action on an object within
// an organization. Actors are "user:<id>" for authenticated users and
// "system" for internal processes; objects and actions come from the
// constants in this package.
type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)
