// Package seed provisions a demo tenant for local evaluation. It runs only
// when SEED_DEMO is set and is idempotent across restarts.
package seed

import (
	"context"
	"errors"

	"github.com/smallbiznis/ledgerly/internal/auditcontext"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/config"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	"github.com/smallbiznis/ledgerly/internal/orgcontext"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	demoEmail    = "demo@ledgerly.local"
	demoPassword = "Demo123!"
	demoOrgName  = "Demo Books"
)

var Module = fx.Module("seed",
	fx.Invoke(EnsureDemo),
)

type Params struct {
	fx.In

	Cfg       config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Auth      authdomain.Service
	Customers customerdomain.Service
	Vendors   vendordomain.Service
}

// EnsureDemo registers the demo tenant through the normal signup path, so
// the org gets the default chart of accounts and document sequences, then
// adds a starter customer and vendor.
func EnsureDemo(p Params) error {
	if !p.Cfg.SeedDemo {
		return nil
	}
	log := p.Log.Named("seed")
	ctx := context.Background()

	var existing authdomain.User
	err := p.DB.WithContext(ctx).Where("email = ?", demoEmail).First(&existing).Error
	if err == nil {
		log.Info("demo tenant already present", zap.String("email", demoEmail))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	resp, err := p.Auth.Register(ctx, authdomain.RegisterRequest{
		Email:            demoEmail,
		Password:         demoPassword,
		FirstName:        "Demo",
		LastName:         "Owner",
		OrganizationName: demoOrgName,
	})
	if err != nil {
		return err
	}

	orgCtx := orgcontext.WithOrgID(ctx, int64(resp.User.OrgID))
	orgCtx = auditcontext.WithActor(orgCtx, "system", "seed")

	if _, err := p.Customers.Create(orgCtx, customerdomain.CreateCustomerRequest{
		Name:  "Acme Corporation",
		Email: "billing@acme.test",
	}); err != nil {
		return err
	}
	if _, err := p.Vendors.Create(orgCtx, vendordomain.CreateVendorRequest{
		Name:  "Office Supply Co",
		Email: "invoices@officesupply.test",
	}); err != nil {
		return err
	}

	log.Info("demo tenant seeded",
		zap.String("email", demoEmail),
		zap.String("organization", demoOrgName))
	return nil
}
