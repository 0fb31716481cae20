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

var ErrUserNotFound = errors.New("пользователь не найден")

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	utils.LogSuccess("UserRepository", "Инициализирован репозиторий пользователей")
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id, created_at`

	utils.LogDB("CREATE USER", fmt.Sprintf("Создание пользователя: %s", user.Email))

	err := r.db.QueryRow(ctx, query, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		utils.LogError("UserRepository", fmt.Sprintf("Ошибка создания пользователя %s", user.Email), err)
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	utils.LogSuccess("UserRepository", "Пользователь создан: %s (ID: %s)", user.Email, user.ID)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = $1 LIMIT 1`

	utils.LogDB("GET USER", fmt.Sprintf("Поиск пользователя: %s", email))

	user := &models.User{}
	err := r.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.LogWarning("UserRepository", "Пользователь не найден: %s", email)
			return nil, ErrUserNotFound
		}
		utils.LogError("UserRepository", fmt.Sprintf("Ошибка поиска пользователя %s", email), err)
		return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}

	utils.LogSuccess("UserRepository", "Пользователь найден: %s (ID: %s)", user.Email, user.ID)
	return user, nil
}
