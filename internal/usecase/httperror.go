package usecase

import (
	"errors"
	"fmt"
	"time"

	"shop/internal/domain/model"
)

// UsecaseはHTTPステータス付きエラーを返し、Handlerがそのまま変換する。
// Messageはユーザーにそのまま表示されるので、汎用文言で上書きしない。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 操作しているユーザー。ハンドラがJWTから組み立てて明示的に渡す。
// Usecaseはグローバルなセッション状態を読まない。
type Actor struct {
	UserID int64
	Role   model.Role
}

// 現在時刻。クーポン有効期間やトークン期限の判定をテスト可能にする。
type Clock interface {
	Now() time.Time
}

// 本番用Clock
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
