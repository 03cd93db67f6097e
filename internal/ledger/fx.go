package ledger

import (
	"github.com/netlift/netlift/internal/ledger/repository"
	"github.com/netlift/netlift/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
