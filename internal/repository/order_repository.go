package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// ステータス別の件数と、Delivered注文の売上合計
type OrderStats struct {
	CountByStatus    map[model.OrderStatus]int64
	DeliveredRevenue int64
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	// ステータスで絞った一覧（スタッフ画面のビュー用）
	ListByStatuses(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	// 現在ステータスがfromのときだけtoへ更新する（compare-and-swap）。
	// 更新できなければ false（同時更新で先を越された）。
	UpdateStatusFrom(ctx context.Context, orderID int64, from, to model.OrderStatus) (bool, error)

	// 同じキーなら同じ結果を返すための検索
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)

	// 管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// 管理画面の集計
	Stats(ctx context.Context) (OrderStats, error)
}

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
}
