package auth

import (
	"github.com/smallbiznis/ledgerly/internal/auth/repository"
	"github.com/smallbiznis/ledgerly/internal/auth/service"
	"github.com/smallbiznis/ledgerly/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(token.NewManager),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
