package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/settlement/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.SettlementInvoice) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "period_year"}, {Name: "period_month"}},
		DoNothing: true,
	}).Create(invoice)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SettlementInvoice, error) {
	var invoice domain.SettlementInvoice
	err := db.WithContext(ctx).Where("id = ?", id).Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, clientID snowflake.ID, year, month int) (*domain.SettlementInvoice, error) {
	var invoice domain.SettlementInvoice
	err := db.WithContext(ctx).
		Where("client_id = ? AND period_year = ? AND period_month = ?", clientID, year, month).
		Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoice *domain.SettlementInvoice) error {
	return db.WithContext(ctx).Model(invoice).
		Select("status", "sent_at", "paid_at", "updated_at").
		Updates(invoice).Error
}
