package domain

import (
	"context"
	"errors"
)

type UpdateOrganizationRequest struct {
	Name                 *string `json:"name"`
	BaseCurrency         *string `json:"base_currency"`
	FiscalYearStartMonth *int    `json:"fiscal_year_start_month"`
	Timezone             *string `json:"timezone"`
}

type Service interface {
	Get(ctx context.Context) (Organization, error)
	Update(ctx context.Context, req UpdateOrganizationRequest) (Organization, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidFiscalMonth  = errors.New("invalid_fiscal_year_start_month")
	ErrInvalidTimezone     = errors.New("invalid_timezone")
	ErrNotFound            = errors.New("not_found")
)
