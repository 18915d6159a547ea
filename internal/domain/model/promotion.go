package model

import (
	"strings"
	"time"
)

// クーポン（プロモーション）。コードは大文字で保存する。
// 有効期間は [ValidFrom, ValidTo] の両端を含む。
type Promotion struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Code  string `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Title string `gorm:"type:varchar(255);not null" json:"title"`

	//割引率 0〜100
	DiscountPercent int64 `gorm:"not null" json:"discount_percent"`

	//商品限定クーポンなら対象商品ID（現状はカート全体に適用）
	ProductID *int64 `gorm:"index" json:"product_id,omitempty"`

	ValidFrom time.Time `gorm:"not null" json:"valid_from"`
	ValidTo   time.Time `gorm:"not null" json:"valid_to"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// nowが有効期間内か
func (p Promotion) IsActiveAt(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// 検索用にコードを正規化（trim + 大文字化）
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
