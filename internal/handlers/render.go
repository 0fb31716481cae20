package handlers

import (
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/valyala/fasthttp"

	"carrental-prototype/internal/models"
	"carrental-prototype/internal/utils"
)

// LoginView — данные для страницы входа
type LoginView struct {
	Error string
}

// CarsView — данные для списка машин
type CarsView struct {
	Cars   []models.Car
	UserID string
}

// BookingView — данные для формы бронирования
type BookingView struct {
	Car   *models.Car
	Error string
}

// Renderer рендерит HTML-представления. Каталог шаблонов настраивается
// через VIEWS_DIR.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer(viewsDir string) (*Renderer, error) {
	tmpl, err := template.ParseGlob(filepath.Join(viewsDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки шаблонов из %s: %w", viewsDir, err)
	}

	utils.LogSuccess("Renderer", "Шаблоны загружены из %s", viewsDir)
	return &Renderer{tmpl: tmpl}, nil
}

// NewRendererFromTemplates собирает рендерер из готового набора шаблонов
func NewRendererFromTemplates(tmpl *template.Template) *Renderer {
	return &Renderer{tmpl: tmpl}
}

func (r *Renderer) Render(ctx *fasthttp.RequestCtx, name string, data interface{}) {
	ctx.SetContentType("text/html; charset=utf-8")

	if err := r.tmpl.ExecuteTemplate(ctx, name, data); err != nil {
		utils.LogError("Renderer", fmt.Sprintf("Ошибка рендеринга шаблона %s", name), err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("Internal Server Error")
	}
}
