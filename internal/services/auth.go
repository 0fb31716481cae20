package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"carrental-prototype/internal/models"
	"carrental-prototype/internal/repository"
	"carrental-prototype/internal/utils"
)

var (
	ErrCredentialsRequired = errors.New("email и пароль обязательны")
	ErrWrongPassword       = errors.New("неверный пароль")
)

// LoginOutcome помечает, чем закончился вход: существующий пользователь
// или неявная регистрация. Раньше это различалось null-проверкой, теперь
// исход явный и пригоден для аудита.
type LoginOutcome string

const (
	OutcomeLoggedIn   LoginOutcome = "logged_in"
	OutcomeRegistered LoginOutcome = "registered"
)

type LoginResult struct {
	User    *models.User
	Outcome LoginOutcome
}

// UserStore — контракт хранилища пользователей, нужный сервису
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	utils.LogSuccess("AuthService", "Инициализирован сервис аутентификации")
	return &AuthService{users: users}
}

// Login проверяет учётные данные. Пользователь с неизвестным email
// создаётся автоматически — это намеренное поведение, а не ошибка.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		utils.LogWarning("AuthService", "Отсутствуют обязательные поля")
		return nil, ErrCredentialsRequired
	}

	utils.LogInfo("AuthService", "Попытка входа пользователя: %s", email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.register(ctx, email, password)
		}
		utils.LogError("AuthService", fmt.Sprintf("Ошибка поиска пользователя %s", email), err)
		return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}

	if err := s.CheckPasswordHash(password, user.PasswordHash); err != nil {
		utils.LogWarning("AuthService", "Неверный пароль для пользователя: %s", email)
		return nil, ErrWrongPassword
	}

	utils.LogSuccess("AuthService", "Пользователь вошёл: %s (ID: %s)", user.Email, user.ID)

	return &LoginResult{User: user, Outcome: OutcomeLoggedIn}, nil
}

func (s *AuthService) register(ctx context.Context, email, password string) (*LoginResult, error) {
	utils.LogInfo("AuthService", "Автоматическая регистрация пользователя: %s", email)

	passwordHash, err := s.HashPassword(password)
	if err != nil {
		utils.LogError("AuthService", "Ошибка хеширования пароля", err)
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		utils.LogError("AuthService", fmt.Sprintf("Ошибка создания пользователя %s", email), err)
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	utils.LogSuccess("AuthService", "Пользователь зарегистрирован: %s (ID: %s)", user.Email, user.ID)

	return &LoginResult{User: user, Outcome: OutcomeRegistered}, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
