package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
)

type CreateVendorRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Notes        string `json:"notes"`
}

type UpdateVendorRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	AddressLine1 *string `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postalCode"`
	Country      *string `json:"country"`
	Notes        *string `json:"notes"`
	IsActive     *bool   `json:"isActive"`
}

type ListVendorRequest struct {
	pagination.Pagination
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search"`
}

type ListVendorResponse struct {
	pagination.PageInfo
	Vendors []Vendor `json:"vendors"`
}

type Service interface {
	Create(ctx context.Context, req CreateVendorRequest) (Vendor, error)
	List(ctx context.Context, req ListVendorRequest) (ListVendorResponse, error)
	GetByID(ctx context.Context, id string) (Vendor, error)
	Update(ctx context.Context, id string, req UpdateVendorRequest) (Vendor, error)

	// Delete removes an unreferenced vendor; one referenced by any bill,
	// vendor payment or expense is deactivated instead.
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
