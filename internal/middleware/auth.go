package middleware

import (
	"context"

	"github.com/valyala/fasthttp"

	"carrental-prototype/internal/models"
	"carrental-prototype/internal/utils"
)

// SessionCookieName — имя cookie с подписанным сессионным токеном
const SessionCookieName = "rental_session"

// SessionReader — контракт проверки сессии, нужный middleware
type SessionReader interface {
	Get(ctx context.Context, token string) (*models.Session, error)
}

type AuthMiddleware struct {
	sessions SessionReader
}

func NewAuthMiddleware(sessions SessionReader) *AuthMiddleware {
	utils.LogSuccess("Middleware", "Инициализирован middleware авторизации")
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth пропускает запрос дальше только с валидной сессией.
// Всё остальное — редирект на страницу входа, без различия между
// отсутствующим cookie, просроченным токеном и несуществующей сессией.
func (m *AuthMiddleware) RequireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		token := string(ctx.Request.Header.Cookie(SessionCookieName))
		if token == "" {
			utils.LogWarning("Middleware", "Запрос без сессионного cookie: %s", string(ctx.Path()))
			ctx.Redirect("/", fasthttp.StatusFound)
			return
		}

		session, err := m.sessions.Get(ctx, token)
		if err != nil {
			utils.LogWarning("Middleware", "Невалидная сессия для %s: %v", string(ctx.Path()), err)
			ctx.Redirect("/", fasthttp.StatusFound)
			return
		}

		ctx.SetUserValue("user_id", session.UserID)
		utils.LogDebug("Middleware", "Аутентифицирован пользователь: %s", session.UserID)

		next(ctx)
	}
}
