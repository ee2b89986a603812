package vendors

import (
	"github.com/smallbiznis/ledgerly/internal/vendors/repository"
	"github.com/smallbiznis/ledgerly/internal/vendors/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendor.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
