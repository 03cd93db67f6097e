package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/client/domain"
	"github.com/netlift/netlift/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	feePct := strings.TrimSpace(req.FeePct)
	if feePct == "" {
		feePct = "0.20"
	}
	if _, err := money.ParseRate(feePct); err != nil {
		return domain.Client{}, domain.ErrInvalidFeePct
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = "platform"
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Platform:  platform,
		Currency:  currency,
		FeePct:    feePct,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	s.log.Info("client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("fee_pct", client.FeePct),
	)

	return client, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Client, error) {
	client, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Client, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, s.db, limit)
}
