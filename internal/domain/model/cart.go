package model

import (
	"strconv"
	"time"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusConverted CartStatus = "CONVERTED"
	CartStatusAbandoned CartStatus = "ABANDONED"
)

// 1スコープ（ユーザー or ゲストセッション）につきACTIVEは1つ。
// user_id と session_id はどちらか片方だけ入る。
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *int64     `gorm:"uniqueIndex:idx_carts_active_user,where:status = 'ACTIVE';check:chk_carts_single_owner,(user_id IS NULL) <> (session_id IS NULL)" json:"user_id"`
	SessionID *string    `gorm:"type:varchar(64);uniqueIndex:idx_carts_active_session,where:status = 'ACTIVE'" json:"session_id"`
	Status    CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	// 明細を変えるたびに+1。サマリーキャッシュのキーに含める
	Version   int64      `gorm:"not null;default:0" json:"version"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (c Cart) IsGuest() bool {
	return c.UserID == nil
}

// カートの持ち主。ログイン中ならUserID、ゲストならSessionID。
type CartScope struct {
	UserID    int64
	SessionID string
}

func UserScope(userID int64) CartScope {
	return CartScope{UserID: userID}
}

func GuestScope(sessionID string) CartScope {
	return CartScope{SessionID: sessionID}
}

func (s CartScope) Authenticated() bool {
	return s.UserID > 0
}

func (s CartScope) Valid() bool {
	return s.Authenticated() || s.SessionID != ""
}

// memoやキャッシュのキー
func (s CartScope) Key() string {
	if s.Authenticated() {
		return "user:" + strconv.FormatInt(s.UserID, 10)
	}
	return "session:" + s.SessionID
}
