package models

import "time"

// Car — машина в прокатном парке. RentedBy == nil означает, что машина
// свободна; ReturnDate имеет смысл только пока машина арендована.
// Version увеличивается при каждой смене состояния аренды.
type Car struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	ImageURL   string    `json:"image_url"`
	ReturnDate string    `json:"return_date"`
	RentedBy   *string   `json:"rented_by"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// Available сообщает, свободна ли машина для бронирования.
// Value receiver: методы вызываются из шаблонов на элементах среза.
func (c Car) Available() bool {
	return c.RentedBy == nil
}

// RentedByUser сообщает, арендована ли машина данным пользователем
func (c Car) RentedByUser(userID string) bool {
	return c.RentedBy != nil && *c.RentedBy == userID
}
