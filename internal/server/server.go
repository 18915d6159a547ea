package server

import (
	"shop/internal/config"
	"shop/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Handlers はルーティングに必要なハンドラをまとめたもの。
type Handlers struct {
	Auth           *handler.AuthHandler
	Product        *handler.ProductHandler
	Cart           *handler.CartHandler
	Coupon         *handler.CouponHandler
	Order          *handler.OrderHandler
	StaffOrder     *handler.StaffOrderHandler
	AdminOrder     *handler.AdminOrderHandler
	AdminPromotion *handler.AdminPromotionHandler
}

func Start(addr string, cfg config.Config, h Handlers) error {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.FEURL},
			AllowCredentials: true,
		}))
	}

	h.Auth.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg)
	h.Coupon.RegisterRoutes(e, cfg)
	h.Order.RegisterRoutes(e, cfg)
	h.StaffOrder.RegisterRoutes(e, cfg)
	h.AdminOrder.RegisterRoutes(e, cfg)
	h.AdminPromotion.RegisterRoutes(e, cfg)

	return e.Start(addr)
}
