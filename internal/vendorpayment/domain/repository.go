package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows vendor payment listings. A zero field is ignored.
type ListFilter struct {
	OrgID    snowflake.ID
	VendorID snowflake.ID
	IsVoided *bool
	From     date.Date
	To       date.Date
	Search   string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *VendorPayment, applications []BillPaymentApplication) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*VendorPayment, error)
	ApplicationsFor(ctx context.Context, db *gorm.DB, orgID, paymentID snowflake.ID) ([]BillPaymentApplication, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*VendorPayment, int64, error)
	Update(ctx context.Context, db *gorm.DB, payment *VendorPayment) error

	// DeleteApplications removes the payment's application rows. Called
	// on void, after the affected bill ids have been collected.
	DeleteApplications(ctx context.Context, db *gorm.DB, orgID, paymentID snowflake.ID) error
}
