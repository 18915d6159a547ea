package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 公開一覧の検索条件
type ProductListQuery struct {
	Page  int
	Limit int
	Q     string
}

// 商品の取得だけを約束（カタログ更新は本サービスの範囲外）。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
}

// 在庫の増減。Delivered遷移時の在庫引き落としに使う。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算する。足りなければ false。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
}
