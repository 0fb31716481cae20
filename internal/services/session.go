package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"carrental-prototype/internal/cache"
	"carrental-prototype/internal/models"
	"carrental-prototype/internal/utils"
)

var ErrSessionNotFound = errors.New("сессия не найдена")

// SessionKV — контракт key-value хранилища сессий (Redis в проде)
type SessionKV interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionService управляет жизненным циклом сессий: запись в Redis по
// непрозрачному ID, клиенту выдаётся подписанный токен с этим ID.
// Секрет подписи приходит из конфигурации, не из кода.
type SessionService struct {
	kv     SessionKV
	secret string
	ttl    time.Duration
}

func NewSessionService(kv SessionKV, secret string, ttl time.Duration) *SessionService {
	utils.LogSuccess("SessionService", "Инициализирован сервис сессий (TTL: %v)", ttl)
	return &SessionService{
		kv:     kv,
		secret: secret,
		ttl:    ttl,
	}
}

// Create создаёт сессию для пользователя и возвращает токен для cookie
func (s *SessionService) Create(ctx context.Context, userID string) (string, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := s.kv.SetJSON(ctx, cache.SessionKey(session.ID), session, s.ttl); err != nil {
		utils.LogError("SessionService", "Ошибка сохранения сессии", err)
		return "", fmt.Errorf("ошибка сохранения сессии: %w", err)
	}

	claims := &sessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(s.secret))
	if err != nil {
		utils.LogError("SessionService", "Ошибка подписи сессионного токена", err)
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}

	utils.LogSuccess("SessionService", "Сессия создана для пользователя %s", userID)
	return signedToken, nil
}

// Get проверяет подпись токена и возвращает сессию из хранилища
func (s *SessionService) Get(ctx context.Context, token string) (*models.Session, error) {
	sessionID, err := s.parseToken(token)
	if err != nil {
		utils.LogWarning("SessionService", "Невалидный сессионный токен: %v", err)
		return nil, ErrSessionNotFound
	}

	var session models.Session
	if err := s.kv.GetJSON(ctx, cache.SessionKey(sessionID), &session); err != nil {
		utils.LogWarning("SessionService", "Сессия %s не найдена в хранилище", sessionID)
		return nil, ErrSessionNotFound
	}

	return &session, nil
}

// Destroy удаляет сессию. Удаление несуществующей сессии — не ошибка.
func (s *SessionService) Destroy(ctx context.Context, token string) {
	sessionID, err := s.parseToken(token)
	if err != nil {
		return
	}

	if err := s.kv.Delete(ctx, cache.SessionKey(sessionID)); err != nil {
		utils.LogWarning("SessionService", "Ошибка удаления сессии %s: %v", sessionID, err)
		return
	}

	utils.LogInfo("SessionService", "Сессия %s уничтожена", sessionID)
}

func (s *SessionService) parseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", errors.New("invalid token")
	}

	return claims.SessionID, nil
}
