package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"carrental-prototype/internal/middleware"
	"carrental-prototype/internal/services"
	"carrental-prototype/internal/utils"
)

// Сообщения страницы входа — контракт пользовательского интерфейса
const (
	msgCredentialsRequired = "Email and password are required."
	msgWrongPassword       = "Incorrect password. Please try again."
	msgServerError         = "Server error. Try again."
)

// AuthProvider — контракт сервиса аутентификации, нужный обработчику
type AuthProvider interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// SessionManager — контракт жизненного цикла сессий
type SessionManager interface {
	Create(ctx context.Context, userID string) (string, error)
	Destroy(ctx context.Context, token string)
}

type AuthHandler struct {
	auth     AuthProvider
	sessions SessionManager
	render   *Renderer
}

func NewAuthHandler(auth AuthProvider, sessions SessionManager, render *Renderer) *AuthHandler {
	utils.LogSuccess("AuthHandler", "Инициализирован обработчик аутентификации")
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		render:   render,
	}
}

// LoginPage обрабатывает GET / — страница входа
func (h *AuthHandler) LoginPage(ctx *fasthttp.RequestCtx) {
	h.render.Render(ctx, "login.html", LoginView{})
}

// Login обрабатывает POST /login. Неудачи аутентификации показываются
// пользователю на форме входа; состояние при них не меняется.
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	utils.LogRequest("POST", "/login", "anonymous")

	email := string(ctx.PostArgs().Peek("email"))
	password := string(ctx.PostArgs().Peek("password"))

	result, err := h.auth.Login(ctx, email, password)
	if err != nil {
		message := msgServerError
		status := fasthttp.StatusInternalServerError

		switch {
		case errors.Is(err, services.ErrCredentialsRequired):
			message = msgCredentialsRequired
			status = fasthttp.StatusBadRequest
		case errors.Is(err, services.ErrWrongPassword):
			message = msgWrongPassword
			status = fasthttp.StatusUnauthorized
		default:
			utils.LogError("AuthHandler", "Ошибка входа", err)
		}

		ctx.SetStatusCode(status)
		h.render.Render(ctx, "login.html", LoginView{Error: message})
		utils.LogResponse("/login", status, time.Since(startTime))
		return
	}

	token, err := h.sessions.Create(ctx, result.User.ID)
	if err != nil {
		utils.LogError("AuthHandler", "Ошибка создания сессии", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		h.render.Render(ctx, "login.html", LoginView{Error: msgServerError})
		utils.LogResponse("/login", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	setSessionCookie(ctx, token)

	if result.Outcome == services.OutcomeRegistered {
		utils.LogSuccess("AuthHandler", "Зарегистрирован и вошёл новый пользователь: %s", result.User.Email)
	} else {
		utils.LogSuccess("AuthHandler", "Пользователь вошёл: %s", result.User.Email)
	}

	ctx.Redirect("/cars", fasthttp.StatusFound)
	utils.LogResponse("/login", fasthttp.StatusFound, time.Since(startTime))
}

// Logout обрабатывает GET /logout. Уничтожение отсутствующей сессии —
// не ошибка, редирект происходит в любом случае.
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	token := string(ctx.Request.Header.Cookie(middleware.SessionCookieName))
	if token != "" {
		h.sessions.Destroy(ctx, token)
	}

	clearSessionCookie(ctx)
	ctx.Redirect("/", fasthttp.StatusFound)
}

func setSessionCookie(ctx *fasthttp.RequestCtx, token string) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(middleware.SessionCookieName)
	cookie.SetValue(token)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)

	ctx.Response.Header.SetCookie(cookie)
}

func clearSessionCookie(ctx *fasthttp.RequestCtx) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(middleware.SessionCookieName)
	cookie.SetValue("")
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetExpire(fasthttp.CookieExpireDelete)

	ctx.Response.Header.SetCookie(cookie)
}
