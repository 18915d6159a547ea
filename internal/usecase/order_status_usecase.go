package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/google/uuid"
)

// チケットの有効期限。確認ダイアログを開いたまま放置された分は捨てる。
const transitionTicketTTL = 2 * time.Minute

// OrderStatusUsecase は注文ステータス遷移の唯一の入口。
// スタッフ/管理者の操作は request → confirm の2段階、
// 顧客の自己キャンセルは1段階で、どちらも同じ遷移表を通る。
type OrderStatusUsecase struct {
	tx            repo.TransactionManager
	confirmations *ConfirmationStore
	clock         Clock
}

func NewOrderStatusUsecase(tx repo.TransactionManager, confirmations *ConfirmationStore, clock Clock) *OrderStatusUsecase {
	return &OrderStatusUsecase{tx: tx, confirmations: confirmations, clock: clock}
}

type TransitionTicketOutput struct {
	Token       string    `json:"token"`
	OrderID     int64     `json:"order_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RequestTransition は遷移を検証してチケットを発行する。
// この時点では何も書き換えない（確認されるまで副作用なし）。
func (u *OrderStatusUsecase) RequestTransition(ctx context.Context, actor Actor, orderID int64, requested string) (TransitionTicketOutput, error) {
	if actor.UserID <= 0 {
		return TransitionTicketOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Role.CanManageOrders() {
		return TransitionTicketOutput{}, NewHTTPError(http.StatusForbidden, "staff only")
	}
	if orderID <= 0 {
		return TransitionTicketOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	to := model.OrderStatus(requested)
	if !model.ValidOrderStatus(to) {
		return TransitionTicketOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out TransitionTicketOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := model.CheckTransition(o.Status, to); err != nil {
			return NewHTTPError(http.StatusConflict, err.Error())
		}

		now := u.clock.Now()
		ticket := TransitionTicket{
			Token:       uuid.NewString(),
			OrderID:     o.ID,
			ActorUserID: actor.UserID,
			From:        o.Status,
			To:          to,
			ExpiresAt:   now.Add(transitionTicketTTL),
		}
		u.confirmations.Issue(ticket, now)

		out = TransitionTicketOutput{
			Token:       ticket.Token,
			OrderID:     o.ID,
			From:        string(o.Status),
			To:          string(to),
			Description: fmt.Sprintf("change order #%d from %s to %s", o.ID, o.Status, to),
			ExpiresAt:   ticket.ExpiresAt,
		}
		return nil
	})

	if err != nil {
		return TransitionTicketOutput{}, err
	}
	return out, nil
}

// ConfirmTransition はチケットを消費して遷移を確定する。
// 現在ステータスを再検証し、compare-and-swapで書くので、
// 同時更新のどちらか一方しか成功しない。更新後の注文を返す。
func (u *OrderStatusUsecase) ConfirmTransition(ctx context.Context, actor Actor, token string) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Role.CanManageOrders() {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "staff only")
	}

	ticket, ok := u.confirmations.Take(token, u.clock.Now())
	if !ok {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid or expired confirmation token")
	}
	if ticket.ActorUserID != actor.UserID {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "confirmation token belongs to another user")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, ticket.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//リクエスト後に状態が動いていても、現在の状態から遷移表で
		//もう一度判定し、その理由をそのまま返す
		if err := model.CheckTransition(o.Status, ticket.To); err != nil {
			return NewHTTPError(http.StatusConflict, err.Error())
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//Deliveredで在庫を引き落とす。足りなければ遷移ごと中止
		if ticket.To == model.OrderStatusDelivered {
			for _, it := range items {
				ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				if !ok {
					return NewHTTPError(http.StatusConflict, "insufficient stock to deliver this order")
				}
			}
		}

		swapped, err := r.Orders().UpdateStatusFrom(ctx, o.ID, o.Status, ticket.To)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !swapped {
			return NewHTTPError(http.StatusConflict, "order status has changed, please reload")
		}

		if err := u.writeStatusAudit(ctx, r, actor, o.ID, o.Status, ticket.To); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = ticket.To
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CancelMyOrder は顧客本人によるキャンセル。
// 遷移の可否はスタッフと同じ表で判定する（Pending/Confirmedのみ通る）。
func (u *OrderStatusUsecase) CancelMyOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
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

		if err := model.CheckTransition(o.Status, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusConflict, err.Error())
		}

		swapped, err := r.Orders().UpdateStatusFrom(ctx, o.ID, o.Status, model.OrderStatusCancelled)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !swapped {
			return NewHTTPError(http.StatusConflict, "order status has changed, please reload")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderStatusUsecase) writeStatusAudit(ctx context.Context, r repo.TxRepos, actor Actor, orderID int64, before, after model.OrderStatus) error {
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		ActorRole:    string(actor.Role),
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   `{"status":"` + string(before) + `"}`,
		AfterJSON:    `{"status":"` + string(after) + `"}`,
		CreatedAt:    u.clock.Now(),
	})
}
