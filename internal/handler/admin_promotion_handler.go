package handler

import (
	"net/http"
	"strconv"
	"time"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// プロモーション（クーポン）の管理CRUD。
type AdminPromotionHandler struct {
	uc *usecase.CouponUsecase
}

// DI
func NewAdminPromotionHandler(uc *usecase.CouponUsecase) *AdminPromotionHandler {
	return &AdminPromotionHandler{uc: uc}
}

type PromotionCreateRequest struct {
	Code            string `json:"code"`
	Title           string `json:"title"`
	DiscountPercent int64  `json:"discount_percent"`
	ProductID       *int64 `json:"product_id"`
	//日付はRFC3339
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

func (h *AdminPromotionHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/admin/promotions")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.delete)
}

func (h *AdminPromotionHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.List(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminPromotionHandler) create(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PromotionCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid valid_from"})
	}
	validTo, err := time.Parse(time.RFC3339, req.ValidTo)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid valid_to"})
	}

	out, err := h.uc.Create(c.Request().Context(), actor, usecase.PromotionCreateInput{
		Code:            req.Code,
		Title:           req.Title,
		DiscountPercent: req.DiscountPercent,
		ProductID:       req.ProductID,
		ValidFrom:       validFrom,
		ValidTo:         validTo,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminPromotionHandler) delete(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
