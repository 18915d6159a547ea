package model

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusShipping  OrderStatus = "Shipping"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type PaymentMethod string

const (
	//代金引換
	PaymentMethodCOD PaymentMethod = "COD"
	//銀行振込
	PaymentMethodBank PaymentMethod = "BANK"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentMethodCOD || m == PaymentMethodBank
}

// 注文。作成後はstatus以外イミュータブル。
// 金額は作成時に確定し、以後再計算しない。
type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//チェックアウト時に入力された配送先情報
	CustomerName    string `gorm:"type:varchar(255);not null" json:"customer_name"`
	Phone           string `gorm:"type:varchar(30);not null" json:"phone"`
	ShippingAddress string `gorm:"type:varchar(500);not null" json:"shipping_address"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	//subtotal - discount = total。discountを先に確定させ、totalは再計算しない
	Subtotal       int64 `gorm:"not null" json:"subtotal"`
	DiscountAmount int64 `gorm:"not null" json:"discount_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	//適用されたクーポンコード（無ければ空）
	CouponCode string `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`

	Status         OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IdempotencyKey string      `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文明細。作成時のスナップショットで、カタログ価格が変わっても変更しない。
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64     `gorm:"not null;index" json:"order_id"`
	ProductID           int64     `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   int64     `gorm:"not null" json:"unit_price_snapshot"`
	Quantity            int64     `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipping,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 終端ステータス（以後いかなる遷移も不可）
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// 配送フロー上の順序。Cancelledはフロー外なので含めない。
var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusShipping:  2,
	OrderStatusDelivered: 3,
}

// 許可される遷移:
//
//	Pending   → Confirmed | Cancelled
//	Confirmed → Shipping  | Cancelled
//	Shipping  → Delivered
//
// Delivered / Cancelled は終端。
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:  {OrderStatusDelivered},
}

// CheckTransitionはfrom→toが許可された遷移なら nil、
// そうでなければ理由を説明するエラーを返す。
// 呼び出し側はこのメッセージをそのままユーザーに表示する。
func CheckTransition(from, to OrderStatus) error {
	if !ValidOrderStatus(to) {
		return fmt.Errorf("unknown order status %q", string(to))
	}
	if from == to {
		//同一ステータスの再要求も不正扱い（サイレント成功にしない）
		return fmt.Errorf("order is already %s", string(from))
	}
	if from.IsTerminal() {
		return fmt.Errorf("cannot change a %s order", lowerStatus(from))
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}

	//拒否理由を組み立てる
	if to == OrderStatusCancelled {
		return fmt.Errorf("cannot cancel an order that is already %s", lowerStatus(from))
	}
	fromRank, fromOK := statusRank[from]
	toRank, toOK := statusRank[to]
	if fromOK && toOK && toRank < fromRank {
		return fmt.Errorf("cannot move backward from %s to %s", string(from), string(to))
	}
	return fmt.Errorf("cannot skip from %s to %s", string(from), string(to))
}

func lowerStatus(s OrderStatus) string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusConfirmed:
		return "confirmed"
	case OrderStatusShipping:
		return "shipping"
	case OrderStatusDelivered:
		return "delivered"
	case OrderStatusCancelled:
		return "cancelled"
	}
	return string(s)
}
