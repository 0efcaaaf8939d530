package model

import (
	"time"

	"gorm.io/gorm"
)

// 親カテゴリを持てる（1階層以上のツリー）。
type Category struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID    *int64         `gorm:"index" json:"parent_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
