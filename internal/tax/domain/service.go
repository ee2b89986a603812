package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
)

type CreateTaxRateRequest struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

type UpdateTaxRateRequest struct {
	Name     *string          `json:"name"`
	Rate     *decimal.Decimal `json:"rate"`
	IsActive *bool            `json:"isActive"`
}

type ListTaxRateRequest struct {
	pagination.Pagination
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search"`
}

type ListTaxRateResponse struct {
	pagination.PageInfo
	TaxRates []TaxRate `json:"tax_rates"`
}

type Service interface {
	Create(ctx context.Context, req CreateTaxRateRequest) (TaxRate, error)
	List(ctx context.Context, req ListTaxRateRequest) (ListTaxRateResponse, error)
	GetByID(ctx context.Context, id string) (TaxRate, error)
	Update(ctx context.Context, id string, req UpdateTaxRateRequest) (TaxRate, error)

	// Delete removes an unreferenced rate; one referenced by document
	// lines is deactivated instead.
	Delete(ctx context.Context, id string) error
}
