package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Create(client).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, platform, currency, fee_pct, metadata, created_at, updated_at
		 FROM clients WHERE id = ?`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, limit int) ([]domain.Client, error) {
	var clients []domain.Client
	err := db.WithContext(ctx).Order("id ASC").Limit(limit).Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
