package usecase

import (
	"context"
	"errors"
	"net/http"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// スタッフ/管理者画面のビュー名。
// actionable  … 対応待ち（Pending）
// in_progress … 処理中（Confirmed / Shipping）
// history     … 完了・キャンセル済み（Delivered / Cancelled）
const (
	ViewActionable = "actionable"
	ViewInProgress = "in_progress"
	ViewHistory    = "history"
)

// StatusesForView はビュー名をステータスの集合に変換する純関数。
func StatusesForView(view string) ([]model.OrderStatus, bool) {
	switch view {
	case ViewActionable:
		return []model.OrderStatus{model.OrderStatusPending}, true
	case ViewInProgress:
		return []model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusShipping}, true
	case ViewHistory:
		return []model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusCancelled}, true
	}
	return nil, false
}

// OrderViewUsecase は注文の読み取り専用ビュー。毎回取得し直し、何も変更しない。
type OrderViewUsecase struct {
	tx repo.TransactionManager
}

func NewOrderViewUsecase(tx repo.TransactionManager) *OrderViewUsecase {
	return &OrderViewUsecase{tx: tx}
}

// ListMyOrders は自分の注文一覧（新しい順）。
func (u *OrderViewUsecase) ListMyOrders(ctx context.Context, actor Actor) ([]OrderOutput, error) {
	if actor.UserID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, actor.UserID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderViewUsecase) GetMyOrderDetail(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != actor.UserID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ListStaffOrders はスタッフ画面のビュー別一覧。
func (u *OrderViewUsecase) ListStaffOrders(ctx context.Context, actor Actor, view string) ([]OrderOutput, error) {
	if actor.UserID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Role.CanManageOrders() {
		return []OrderOutput{}, NewHTTPError(http.StatusForbidden, "staff only")
	}

	statuses, ok := StatusesForView(view)
	if !ok {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid view")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByStatuses(ctx, statuses)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ListAdminOrders は管理者用の絞り込み付き一覧。
func (u *OrderViewUsecase) ListAdminOrders(ctx context.Context, actor Actor, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if actor.Role != model.RoleAdmin {
		return []OrderOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.ValidOrderStatus(model.OrderStatus(f.Status)) {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

type OrderStatsOutput struct {
	Pending          int64 `json:"pending"`
	Confirmed        int64 `json:"confirmed"`
	Shipping         int64 `json:"shipping"`
	Delivered        int64 `json:"delivered"`
	Cancelled        int64 `json:"cancelled"`
	DeliveredRevenue int64 `json:"delivered_revenue"`
}

// Stats は管理画面のダッシュボード用集計。
func (u *OrderViewUsecase) Stats(ctx context.Context, actor Actor) (OrderStatsOutput, error) {
	if actor.Role != model.RoleAdmin {
		return OrderStatsOutput{}, NewHTTPError(http.StatusForbidden, "admin only")
	}

	var out OrderStatsOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		stats, err := r.Orders().Stats(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = OrderStatsOutput{
			Pending:          stats.CountByStatus[model.OrderStatusPending],
			Confirmed:        stats.CountByStatus[model.OrderStatusConfirmed],
			Shipping:         stats.CountByStatus[model.OrderStatusShipping],
			Delivered:        stats.CountByStatus[model.OrderStatusDelivered],
			Cancelled:        stats.CountByStatus[model.OrderStatusCancelled],
			DeliveredRevenue: stats.DeliveredRevenue,
		}
		return nil
	})

	if err != nil {
		return OrderStatsOutput{}, err
	}
	return out, nil
}
