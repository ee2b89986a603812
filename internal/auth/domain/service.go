package domain

import (
	"context"
	"time"

	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
)

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	OrganizationName string `json:"organizationName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login. Organization is only
// populated by Register.
type AuthResponse struct {
	Token        string                  `json:"token"`
	ExpiresAt    time.Time               `json:"expires_at"`
	User         User                    `json:"user"`
	Organization *orgdomain.Organization `json:"organization,omitempty"`
}

type Service interface {
	// Register provisions a new tenant: organization, owner user, default
	// chart of accounts and document sequences, all in one transaction.
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	Me(ctx context.Context) (User, error)
}
