package vendorpayment

import (
	"github.com/smallbiznis/ledgerly/internal/vendorpayment/repository"
	"github.com/smallbiznis/ledgerly/internal/vendorpayment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendorpayment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
