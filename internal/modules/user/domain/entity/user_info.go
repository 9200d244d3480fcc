package entity

import "time"

// UserInfo 平台账号，用于接口鉴权
type UserInfo struct {
	Id        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Uuid      string    `gorm:"size:64;uniqueIndex" json:"uuid"`
	Username  string    `gorm:"size:64;uniqueIndex" json:"username"`
	Nickname  string    `gorm:"size:64" json:"nickname"`
	Password  string    `gorm:"size:128" json:"-"`
	Status    int8      `gorm:"default:1" json:"status"`
	IsAdmin   int8      `gorm:"default:0" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserInfo) TableName() string {
	return "user_info"
}
