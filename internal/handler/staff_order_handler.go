package handler

import (
	"net/http"
	"strconv"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// スタッフ画面の注文API。
// ステータス変更は request → confirm の2段階（確認ダイアログの置き換え）。
type StaffOrderHandler struct {
	statusUC *usecase.OrderStatusUsecase
	viewUC   *usecase.OrderViewUsecase
}

// DI
func NewStaffOrderHandler(statusUC *usecase.OrderStatusUsecase, viewUC *usecase.OrderViewUsecase) *StaffOrderHandler {
	return &StaffOrderHandler{statusUC: statusUC, viewUC: viewUC}
}

type RequestTransitionRequest struct {
	Status string `json:"status"`
}

type ConfirmTransitionRequest struct {
	Token string `json:"token"`
}

func (h *StaffOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/staff/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.StaffRoleGuard())

	g.GET("", h.list)
	g.POST("/:id/transition", h.requestTransition)
	g.POST("/:id/transition/confirm", h.confirmTransition)
}

// ?view=actionable|in_progress|history（省略時はactionable）
func (h *StaffOrderHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	view := c.QueryParam("view")
	if view == "" {
		view = usecase.ViewActionable
	}

	out, err := h.viewUC.ListStaffOrders(c.Request().Context(), actor, view)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StaffOrderHandler) requestTransition(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req RequestTransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.statusUC.RequestTransition(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *StaffOrderHandler) confirmTransition(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ConfirmTransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "token is required"})
	}

	out, err := h.statusUC.ConfirmTransition(c.Request().Context(), actor, req.Token)
	if err != nil {
		return writeError(c, err)
	}

	//更新後の注文を返すので、呼び出し側の再取得は不要
	return c.JSON(http.StatusOK, out)
}
