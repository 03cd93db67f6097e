package baseline

import (
	"github.com/netlift/netlift/internal/baseline/repository"
	"github.com/netlift/netlift/internal/baseline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("baseline.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
