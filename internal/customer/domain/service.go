package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
)

type CreateCustomerRequest struct {
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

type UpdateCustomerRequest struct {
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

type ListCustomerRequest struct {
	pagination.Pagination
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search"`
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(ctx context.Context, id string) (Customer, error)
	Update(ctx context.Context, id string, req UpdateCustomerRequest) (Customer, error)

	// Delete removes an unreferenced customer; one referenced by any
	// invoice or payment is deactivated instead.
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
