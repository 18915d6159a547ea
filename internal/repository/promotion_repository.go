package repository

import (
	"context"

	"shop/internal/domain/model"
)

type PromotionRepository interface {
	// コードは正規化済み（大文字）で渡す
	FindByCode(ctx context.Context, code string) (model.Promotion, error)
	List(ctx context.Context) ([]model.Promotion, error)
	Create(ctx context.Context, p model.Promotion) (model.Promotion, error)
	DeleteByID(ctx context.Context, id int64) error
}
