package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 遷移表の全組み合わせ。許可される遷移は3つだけで、
// それ以外は全てエラーになる。
func TestCheckTransition_AllowedPairs(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusConfirmed, OrderStatusShipping},
		{OrderStatusConfirmed, OrderStatusCancelled},
		{OrderStatusShipping, OrderStatusDelivered},
	}

	for _, pair := range allowed {
		err := CheckTransition(pair[0], pair[1])
		assert.NoError(t, err, "%s -> %s should be allowed", pair[0], pair[1])
	}
}

func TestCheckTransition_AllPairsOutsideTableRejected(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusShipping,
		OrderStatusDelivered, OrderStatusCancelled,
	}

	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusConfirmed}:   true,
		{OrderStatusPending, OrderStatusCancelled}:   true,
		{OrderStatusConfirmed, OrderStatusShipping}:  true,
		{OrderStatusConfirmed, OrderStatusCancelled}: true,
		{OrderStatusShipping, OrderStatusDelivered}:  true,
	}

	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			if allowed[[2]OrderStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.Error(t, err, "%s -> %s should be rejected", from, to)
			}
		}
	}
}

// 同一ステータスへの再要求はサイレント成功にしない
func TestCheckTransition_SameStatus(t *testing.T) {
	err := CheckTransition(OrderStatusPending, OrderStatusPending)
	assert.EqualError(t, err, "order is already Pending")
}

func TestCheckTransition_SkipForward(t *testing.T) {
	err := CheckTransition(OrderStatusPending, OrderStatusShipping)
	assert.EqualError(t, err, "cannot skip from Pending to Shipping")

	err = CheckTransition(OrderStatusPending, OrderStatusDelivered)
	assert.EqualError(t, err, "cannot skip from Pending to Delivered")

	// ConfirmedからDeliveredへの直行も不可（Shippingを飛ばせない）
	err = CheckTransition(OrderStatusConfirmed, OrderStatusDelivered)
	assert.EqualError(t, err, "cannot skip from Confirmed to Delivered")
}

func TestCheckTransition_Backward(t *testing.T) {
	err := CheckTransition(OrderStatusShipping, OrderStatusConfirmed)
	assert.EqualError(t, err, "cannot move backward from Shipping to Confirmed")

	err = CheckTransition(OrderStatusConfirmed, OrderStatusPending)
	assert.EqualError(t, err, "cannot move backward from Confirmed to Pending")

	err = CheckTransition(OrderStatusShipping, OrderStatusPending)
	assert.EqualError(t, err, "cannot move backward from Shipping to Pending")
}

func TestCheckTransition_Terminal(t *testing.T) {
	err := CheckTransition(OrderStatusDelivered, OrderStatusPending)
	assert.EqualError(t, err, "cannot change a delivered order")

	err = CheckTransition(OrderStatusDelivered, OrderStatusCancelled)
	assert.EqualError(t, err, "cannot change a delivered order")

	err = CheckTransition(OrderStatusCancelled, OrderStatusConfirmed)
	assert.EqualError(t, err, "cannot change a cancelled order")
}

// 出荷後のキャンセルは「もうcancelできない」という文言で返す
func TestCheckTransition_CancelAfterShipping(t *testing.T) {
	err := CheckTransition(OrderStatusShipping, OrderStatusCancelled)
	assert.EqualError(t, err, "cannot cancel an order that is already shipping")
}

func TestCheckTransition_UnknownStatus(t *testing.T) {
	err := CheckTransition(OrderStatusPending, OrderStatus("SHIPPED"))
	assert.EqualError(t, err, `unknown order status "SHIPPED"`)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusConfirmed.IsTerminal())
	assert.False(t, OrderStatusShipping.IsTerminal())
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodCOD))
	assert.True(t, ValidPaymentMethod(PaymentMethodBank))
	assert.False(t, ValidPaymentMethod(PaymentMethod("CARD")))
	assert.False(t, ValidPaymentMethod(PaymentMethod("")))
}
