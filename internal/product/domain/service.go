package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"github.com/smallbiznis/ledgerly/pkg/money"
)

type CreateProductRequest struct {
	Name               string      `json:"name"`
	SKU                string      `json:"sku"`
	Description        string      `json:"description"`
	UnitPrice          money.Input `json:"unitPrice"`
	IncomeAccountID    string      `json:"incomeAccountId"`
	ExpenseAccountID   string      `json:"expenseAccountId"`
	InventoryAccountID string      `json:"inventoryAccountId"`
}

type UpdateProductRequest struct {
	Name               *string      `json:"name"`
	SKU                *string      `json:"sku"`
	Description        *string      `json:"description"`
	UnitPrice          *money.Input `json:"unitPrice"`
	IncomeAccountID    *string      `json:"incomeAccountId"`
	ExpenseAccountID   *string      `json:"expenseAccountId"`
	InventoryAccountID *string      `json:"inventoryAccountId"`
	IsActive           *bool        `json:"isActive"`
}

type ListProductRequest struct {
	pagination.Pagination
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search"`
}

type ListProductResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	List(ctx context.Context, req ListProductRequest) (ListProductResponse, error)
	GetByID(ctx context.Context, id string) (Product, error)
	Update(ctx context.Context, id string, req UpdateProductRequest) (Product, error)

	// Delete removes an unreferenced product; one referenced by invoice
	// lines is deactivated instead.
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_unit_price")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
