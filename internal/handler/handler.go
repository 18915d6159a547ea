package handler

import (
	"net/http"

	"shop/internal/domain/model"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// Usecaseのエラーをそのままレスポンスに変換する。
// メッセージは汎用文言で潰さない（遷移拒否の理由などをそのまま出す）。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// JWTミドルウェアが入れた値からActorを組み立てる。
// Usecaseにはこれを明示的に渡す（ambientな状態は読ませない）。
func getActorFromContext(c echo.Context) (usecase.Actor, bool) {
	rawID := c.Get(middleware.CtxUserIDKey)
	userID, ok := rawID.(int64)
	if !ok || userID <= 0 {
		return usecase.Actor{}, false
	}

	rawRole := c.Get(middleware.CtxUserRoleKey)
	role, ok := rawRole.(string)
	if !ok || role == "" {
		return usecase.Actor{}, false
	}

	return usecase.Actor{UserID: userID, Role: model.Role(role)}, true
}
