package models

import "time"

const (
	EventActionBook   = "book"
	EventActionReturn = "return"
)

// RentalEvent — запись операторского журнала аренды. Пишется асинхронно
// через пул воркеров, пользователю никогда не показывается.
type RentalEvent struct {
	ID         string
	CarID      string
	UserID     string
	Action     string
	ReturnDate string
	CreatedAt  time.Time
}
