package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"carrental-prototype/internal/models"
	"carrental-prototype/internal/utils"
)

// RentalEventRepository пишет операторский журнал аренды. Из журнала
// ничего не читается по пользовательским маршрутам — только запись.
type RentalEventRepository struct {
	db *pgxpool.Pool
}

func NewRentalEventRepository(db *pgxpool.Pool) *RentalEventRepository {
	utils.LogSuccess("RentalEventRepository", "Инициализирован репозиторий журнала аренды")
	return &RentalEventRepository{db: db}
}

func (r *RentalEventRepository) Insert(ctx context.Context, event *models.RentalEvent) error {
	query := `
		INSERT INTO rental_events (id, car_id, user_id, action, return_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	utils.LogDB("INSERT EVENT", fmt.Sprintf("Журнал: %s машины %s пользователем %s", event.Action, event.CarID, event.UserID))

	err := r.db.QueryRow(ctx, query,
		event.ID,
		event.CarID,
		event.UserID,
		event.Action,
		event.ReturnDate,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи события аренды: %w", err)
	}

	return nil
}
