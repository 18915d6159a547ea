package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleStaff Role = "STAFF"
	RoleAdmin Role = "ADMIN"
)

// 注文ステータスを操作できるロールか（STAFF / ADMIN）
func (r Role) CanManageOrders() bool {
	return r == RoleStaff || r == RoleAdmin
}

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`

	//表示名（チェックアウト画面の初期値に使う）
	FullName string `gorm:"type:varchar(255)" json:"full_name"`
	Phone    string `gorm:"type:varchar(30)" json:"phone"`

	Role     Role `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
