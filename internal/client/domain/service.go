package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateClientRequest struct {
	Name     string
	Platform string
	Currency string
	FeePct   string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	GetByID(ctx context.Context, id snowflake.ID) (Client, error)
	List(ctx context.Context, limit int) ([]Client, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidFeePct = errors.New("invalid_fee_pct")
	ErrNotFound      = errors.New("client_not_found")
)
