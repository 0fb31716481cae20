package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carrental-prototype/internal/models"
	"carrental-prototype/internal/utils"
)

var (
	ErrCarNotFound      = errors.New("машина не найдена")
	ErrCarAlreadyRented = errors.New("машина уже арендована")
)

type CarRepository struct {
	db *pgxpool.Pool
}

func NewCarRepository(db *pgxpool.Pool) *CarRepository {
	utils.LogSuccess("CarRepository", "Инициализирован репозиторий машин")
	return &CarRepository{db: db}
}

// List возвращает все машины в порядке, который отдаёт хранилище.
// Порядок не является частью контракта.
func (r *CarRepository) List(ctx context.Context) ([]models.Car, error) {
	query := `
		SELECT id, model, image_url, return_date, rented_by, version, created_at
		FROM cars
	`

	utils.LogDB("LIST CARS", "Получение списка машин")

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка машин: %w", err)
	}
	defer rows.Close()

	var cars []models.Car
	for rows.Next() {
		var car models.Car
		err := rows.Scan(
			&car.ID,
			&car.Model,
			&car.ImageURL,
			&car.ReturnDate,
			&car.RentedBy,
			&car.Version,
			&car.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования машины: %w", err)
		}
		cars = append(cars, car)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения списка машин: %w", err)
	}

	return cars, nil
}

func (r *CarRepository) GetByID(ctx context.Context, carID string) (*models.Car, error) {
	query := `
		SELECT id, model, image_url, return_date, rented_by, version, created_at
		FROM cars
		WHERE id = $1
	`

	utils.LogDB("GET CAR", fmt.Sprintf("Поиск машины: %s", carID))

	var car models.Car
	err := r.db.QueryRow(ctx, query, carID).Scan(
		&car.ID,
		&car.Model,
		&car.ImageURL,
		&car.ReturnDate,
		&car.RentedBy,
		&car.Version,
		&car.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, fmt.Errorf("ошибка поиска машины: %w", err)
	}

	return &car, nil
}

// Book безусловно записывает арендатора и дату возврата (last-write-wins,
// как в исходной системе): бронирование уже арендованной машины молча
// перезаписывает предыдущего арендатора.
func (r *CarRepository) Book(ctx context.Context, carID, userID, returnDate string) error {
	query := `
		UPDATE cars
		SET rented_by = $1, return_date = $2, version = version + 1
		WHERE id = $3
	`

	utils.LogDB("BOOK CAR", fmt.Sprintf("Бронирование машины %s пользователем %s", carID, userID))

	result, err := r.db.Exec(ctx, query, userID, returnDate, carID)
	if err != nil {
		return fmt.Errorf("ошибка бронирования машины: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCarNotFound
	}

	return nil
}

// BookAvailable — строгий вариант бронирования: условное обновление
// срабатывает только если машина свободна. Ноль затронутых строк на
// существующей машине означает конфликт с другим арендатором.
func (r *CarRepository) BookAvailable(ctx context.Context, carID, userID, returnDate string) error {
	query := `
		UPDATE cars
		SET rented_by = $1, return_date = $2, version = version + 1
		WHERE id = $3 AND rented_by IS NULL
	`

	utils.LogDB("BOOK CAR", fmt.Sprintf("Строгое бронирование машины %s пользователем %s", carID, userID))

	result, err := r.db.Exec(ctx, query, userID, returnDate, carID)
	if err != nil {
		return fmt.Errorf("ошибка бронирования машины: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, carID); getErr != nil {
			return getErr
		}
		utils.LogWarning("CarRepository", "Конфликт бронирования: машина %s уже арендована", carID)
		return ErrCarAlreadyRented
	}

	return nil
}

// Return безусловно освобождает машину. Возврат уже свободной машины —
// фактический no-op, операция идемпотентна.
func (r *CarRepository) Return(ctx context.Context, carID string) error {
	query := `
		UPDATE cars
		SET rented_by = NULL, return_date = '', version = version + 1
		WHERE id = $1
	`

	utils.LogDB("RETURN CAR", fmt.Sprintf("Возврат машины %s", carID))

	result, err := r.db.Exec(ctx, query, carID)
	if err != nil {
		return fmt.Errorf("ошибка возврата машины: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCarNotFound
	}

	return nil
}
