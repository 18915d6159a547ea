package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
)

// CheckoutUsecase はカートを注文に確定させる。
// 金額・明細はすべて確定時点のスナップショットで、以後再計算しない。
type CheckoutUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewCheckoutUsecase(tx repo.TransactionManager, clock Clock) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, clock: clock}
}

type PlaceOrderInput struct {
	CustomerName    string
	Phone           string
	ShippingAddress string
	PaymentMethod   string
	//空なら割引なし。コードはトランザクション内で再検証する
	CouponCode     string
	IdempotencyKey string
}

// discountAmountは subtotal × percent / 100 を切り捨てで1回だけ計算する。
// totalは subtotal - discount で求め、独立に再計算しない（丸めズレ防止）。
func discountAmount(subtotal, percent int64) int64 {
	return decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}

// PlaceOrder はチェックアウトを実行する。
// 入力検証で落ちた場合はDBに一切触れない。注文作成とカートのクリアは
// 同一トランザクションで、失敗すればどちらも巻き戻る。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//配送先情報の必須チェック
	name := strings.TrimSpace(in.CustomerName)
	phone := strings.TrimSpace(in.Phone)
	address := strings.TrimSpace(in.ShippingAddress)
	if name == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "customer name is required")
	}
	if phone == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "phone is required")
	}
	if address == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping address is required")
	}

	method := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.PaymentMethod)))
	if !model.ValidPaymentMethod(method) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//同じキーなら既存の注文をそのまま返す
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, actor.UserID, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		cart, err := r.Carts().FindActiveByUserID(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		now := u.clock.Now()

		//クーポンはトランザクション内で再検証する。カート変更後に
		//クライアントが持っていた割引率は信用しない
		var couponCode string
		var percent int64 = 0
		if strings.TrimSpace(in.CouponCode) != "" {
			normalized := model.NormalizeCouponCode(in.CouponCode)
			promo, err := r.Promotions().FindByCode(ctx, normalized)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "invalid coupon code")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !promo.IsActiveAt(now) {
				return NewHTTPError(http.StatusBadRequest, "coupon is not active")
			}
			couponCode = promo.Code
			percent = promo.DiscountPercent
		}

		//明細スナップショットと小計
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var subtotal int64 = 0

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "a product in the cart is no longer available")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "a product in the cart is no longer available")
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   ci.UnitPriceSnapshot,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			subtotal += ci.LineTotal()
		}

		discount := discountAmount(subtotal, percent)
		total := subtotal - discount

		order := model.Order{
			UserID:          actor.UserID,
			CustomerName:    name,
			Phone:           phone,
			ShippingAddress: address,
			PaymentMethod:   method,
			Subtotal:        subtotal,
			DiscountAmount:  discount,
			TotalAmount:     total,
			CouponCode:      couponCode,
			Status:          model.OrderStatusPending,
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//同時に同じキーが入った場合はもう一度探して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, actor.UserID, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
