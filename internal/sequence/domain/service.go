package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service allocates document numbers. Allocate runs inside the caller's
// transaction so a rolled-back document leaves a gap instead of reusing a
// number; gaps are expected and allowed.
type Service interface {
	// Allocate returns the next formatted number for the class, e.g.
	// INV-0042. Two concurrent calls for the same (org, class) never
	// receive the same number.
	Allocate(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, class Class) (string, error)

	// EnsureDefaults creates the sequence rows for every document class
	// that does not have one yet. Called when a tenant is provisioned.
	EnsureDefaults(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidClass        = errors.New("invalid_document_class")
)
