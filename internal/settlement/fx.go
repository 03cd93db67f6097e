package settlement

import (
	"github.com/netlift/netlift/internal/settlement/repository"
	"github.com/netlift/netlift/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
