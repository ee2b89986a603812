package domain

import "errors"

var (
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrWeakPassword        = errors.New("weak_password")
	ErrInvalidOrganization = errors.New("invalid_organization_name")
	ErrEmailTaken          = errors.New("email_taken")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInactiveUser        = errors.New("inactive_user")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrInvalidToken        = errors.New("invalid_token")
	ErrTokenExpired        = errors.New("token_expired")
)
