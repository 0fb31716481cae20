package models

import "time"

// Session — серверная запись сессии, хранится в Redis по ключу
// session:<id>. В cookie клиента уезжает подписанный токен с ID сессии.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
