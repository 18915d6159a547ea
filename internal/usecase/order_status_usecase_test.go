package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newStatusFixture(clock *fakeClock) (*txFixture, *usecase.OrderStatusUsecase) {
	f := newTxFixture()
	uc := usecase.NewOrderStatusUsecase(newTxManagerStub(f), usecase.NewConfirmationStore(), clock)
	return f, uc
}

func TestOrderStatusUsecase_RequestTransition_StaffOnly(t *testing.T) {
	_, uc := newStatusFixture(&fakeClock{now: testTime})

	_, err := uc.RequestTransition(context.Background(), customer, 1, "Confirmed")
	assertHTTPError(t, err, http.StatusForbidden, "staff only")
}

func TestOrderStatusUsecase_RequestTransition_InvalidStatus(t *testing.T) {
	_, uc := newStatusFixture(&fakeClock{now: testTime})

	_, err := uc.RequestTransition(context.Background(), staff, 1, "SHIPPED")
	assertHTTPError(t, err, http.StatusBadRequest, "invalid status")
}

func TestOrderStatusUsecase_RequestTransition_OrderNotFound(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(99)).
		Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.RequestTransition(context.Background(), staff, 99, "Confirmed")
	assertHTTPError(t, err, http.StatusNotFound, "not found")
}

// PendingからShippingへ直行はできない（Confirmedを飛ばせない）
func TestOrderStatusUsecase_RequestTransition_SkipRejected(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)

	_, err := uc.RequestTransition(context.Background(), staff, 1, "Shipping")
	assertHTTPError(t, err, http.StatusConflict, "cannot skip from Pending to Shipping")
}

// 出荷後にConfirmedへは戻せない
func TestOrderStatusUsecase_RequestTransition_BackwardRejected(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusShipping}, nil)

	_, err := uc.RequestTransition(context.Background(), staff, 1, "Confirmed")
	assertHTTPError(t, err, http.StatusConflict, "cannot move backward from Shipping to Confirmed")
}

func TestOrderStatusUsecase_RequestTransition_SameStatusRejected(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusConfirmed}, nil)

	_, err := uc.RequestTransition(context.Background(), staff, 1, "Confirmed")
	assertHTTPError(t, err, http.StatusConflict, "order is already Confirmed")
}

// request→confirmの正常系。確定までは何も書かれない。
func TestOrderStatusUsecase_RequestThenConfirm(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusPending}, nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Confirmed")
	assert.NoError(t, err)
	assert.NotEmpty(t, ticket.Token)
	assert.Equal(t, "Pending", ticket.From)
	assert.Equal(t, "Confirmed", ticket.To)
	assert.Equal(t, "change order #1 from Pending to Confirmed", ticket.Description)

	//requestの時点では書き込みなし
	f.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	f.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)
	f.orders.On("UpdateStatusFrom", mock.Anything, int64(1), model.OrderStatusPending, model.OrderStatusConfirmed).
		Return(true, nil)
	f.auditLogs.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == staff.UserID &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceID == 1 &&
			l.BeforeJSON == `{"status":"Pending"}` &&
			l.AfterJSON == `{"status":"Confirmed"}`
	})).Return(nil)

	out, err := uc.ConfirmTransition(ctx, staff, ticket.Token)
	assert.NoError(t, err)
	assert.Equal(t, "Confirmed", out.Status)

	f.orders.AssertExpectations(t)
	f.auditLogs.AssertExpectations(t)
}

func TestOrderStatusUsecase_Confirm_TokenIsSingleUse(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)
	f.orders.On("UpdateStatusFrom", mock.Anything, int64(1), model.OrderStatusPending, model.OrderStatusConfirmed).
		Return(true, nil)
	f.auditLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Confirmed")
	assert.NoError(t, err)

	_, err = uc.ConfirmTransition(ctx, staff, ticket.Token)
	assert.NoError(t, err)

	//同じトークンの2回目は失敗
	_, err = uc.ConfirmTransition(ctx, staff, ticket.Token)
	assertHTTPError(t, err, http.StatusBadRequest, "invalid or expired confirmation token")
}

func TestOrderStatusUsecase_Confirm_ExpiredToken(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Confirmed")
	assert.NoError(t, err)

	//TTLを超えて放置
	clock.Advance(3 * time.Minute)

	_, err = uc.ConfirmTransition(ctx, staff, ticket.Token)
	assertHTTPError(t, err, http.StatusBadRequest, "invalid or expired confirmation token")
}

func TestOrderStatusUsecase_Confirm_WrongActor(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Confirmed")
	assert.NoError(t, err)

	other := usecase.Actor{UserID: 42, Role: model.RoleStaff}
	_, err = uc.ConfirmTransition(ctx, other, ticket.Token)
	assertHTTPError(t, err, http.StatusForbidden, "confirmation token belongs to another user")
}

// request後に別の誰かが先に動かしていた場合、confirmは現在の状態で再判定する
func TestOrderStatusUsecase_Confirm_StateMovedSinceRequest(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil).Once()

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Confirmed")
	assert.NoError(t, err)

	//confirm時にはもうConfirmedになっている
	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusConfirmed}, nil)

	_, err = uc.ConfirmTransition(ctx, staff, ticket.Token)
	assertHTTPError(t, err, http.StatusConflict, "order is already Confirmed")

	f.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// compare-and-swapが競合したらエラーで返す（上書きしない）
func TestOrderStatusUsecase_Confirm_CASConflict(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)
	f.orders.On("UpdateStatusFrom", mock.Anything, int64(1), model.OrderStatusPending, model.OrderStatusConfirmed).
		Return(false, nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Confirmed")
	assert.NoError(t, err)

	_, err = uc.ConfirmTransition(ctx, staff, ticket.Token)
	assertHTTPError(t, err, http.StatusConflict, "order status has changed, please reload")

	f.auditLogs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// Deliveredへの確定で明細分の在庫を引き落とす
func TestOrderStatusUsecase_Confirm_DeliveredDecrementsStock(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusShipping}, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ProductID: 5, Quantity: 2},
		{ProductID: 6, Quantity: 1},
	}, nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(5), int64(2)).Return(true, nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(6), int64(1)).Return(true, nil)
	f.orders.On("UpdateStatusFrom", mock.Anything, int64(1), model.OrderStatusShipping, model.OrderStatusDelivered).
		Return(true, nil)
	f.auditLogs.On("Create", mock.Anything, mock.Anything).Return(nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Delivered")
	assert.NoError(t, err)

	out, err := uc.ConfirmTransition(ctx, staff, ticket.Token)
	assert.NoError(t, err)
	assert.Equal(t, "Delivered", out.Status)

	f.inventory.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

// 在庫が足りなければ遷移ごと中止する
func TestOrderStatusUsecase_Confirm_InsufficientStockAborts(t *testing.T) {
	clock := &fakeClock{now: testTime}
	f, uc := newStatusFixture(clock)
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusShipping}, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{
		{ProductID: 5, Quantity: 2},
	}, nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(5), int64(2)).Return(false, nil)

	ticket, err := uc.RequestTransition(ctx, staff, 1, "Delivered")
	assert.NoError(t, err)

	_, err = uc.ConfirmTransition(ctx, staff, ticket.Token)
	assertHTTPError(t, err, http.StatusConflict, "insufficient stock to deliver this order")

	f.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// 顧客の自己キャンセル
// =====================

func TestOrderStatusUsecase_CancelMyOrder_Pending(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 1, Status: model.OrderStatusPending}, nil)
	f.orders.On("UpdateStatusFrom", mock.Anything, int64(1), model.OrderStatusPending, model.OrderStatusCancelled).
		Return(true, nil)
	f.orderItems.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)

	out, err := uc.CancelMyOrder(context.Background(), customer, 1)
	assert.NoError(t, err)
	assert.Equal(t, "Cancelled", out.Status)

	f.orders.AssertExpectations(t)
}

// 他人の注文は存在しない扱い
func TestOrderStatusUsecase_CancelMyOrder_NotOwner(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 42, Status: model.OrderStatusPending}, nil)

	_, err := uc.CancelMyOrder(context.Background(), customer, 1)
	assertHTTPError(t, err, http.StatusNotFound, "not found")

	f.orders.AssertNotCalled(t, "UpdateStatusFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderStatusUsecase_CancelMyOrder_AfterShipping(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 1, Status: model.OrderStatusShipping}, nil)

	_, err := uc.CancelMyOrder(context.Background(), customer, 1)
	assertHTTPError(t, err, http.StatusConflict, "cannot cancel an order that is already shipping")
}

func TestOrderStatusUsecase_CancelMyOrder_Delivered(t *testing.T) {
	f, uc := newStatusFixture(&fakeClock{now: testTime})

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 1, Status: model.OrderStatusDelivered}, nil)

	_, err := uc.CancelMyOrder(context.Background(), customer, 1)
	assertHTTPError(t, err, http.StatusConflict, "cannot change a delivered order")
}
