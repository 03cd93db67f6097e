package client

import (
	"github.com/netlift/netlift/internal/client/repository"
	"github.com/netlift/netlift/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
