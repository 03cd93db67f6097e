package migration

import (
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	"github.com/netlift/netlift/internal/config"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	settlementdomain "github.com/netlift/netlift/internal/settlement/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// versioned SQL migrations target postgres; the sqlite and mysql
		// paths (local and embedded runs) build the schema from the models
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&clientdomain.Client{},
				&baselinedomain.BaselineSnapshot{},
				&ledgerdomain.LedgerEntry{},
				&ledgerdomain.AttributionLog{},
				&settlementdomain.SettlementInvoice{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
