package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"carrental-prototype/internal/models"
	"carrental-prototype/internal/repository"
	"carrental-prototype/internal/utils"
)

const msgCarAlreadyRented = "This car has already been booked by someone else."

// CarProvider — контракт сервиса проката, нужный обработчику
type CarProvider interface {
	List(ctx context.Context) []models.Car
	Get(ctx context.Context, carID string) (*models.Car, error)
	Book(ctx context.Context, carID, returnDate, userID string) error
	Return(ctx context.Context, carID, userID string) error
}

type CarsHandler struct {
	cars   CarProvider
	render *Renderer
}

func NewCarsHandler(cars CarProvider, render *Renderer) *CarsHandler {
	utils.LogSuccess("CarsHandler", "Инициализирован обработчик проката")
	return &CarsHandler{
		cars:   cars,
		render: render,
	}
}

// ListCars обрабатывает GET /cars. Ошибки чтения не роняют запрос:
// сервис в таком случае отдаёт пустой список.
func (h *CarsHandler) ListCars(ctx *fasthttp.RequestCtx) {
	userID, ok := ctx.UserValue("user_id").(string)
	if !ok {
		ctx.Redirect("/", fasthttp.StatusFound)
		return
	}

	utils.LogRequest("GET", "/cars", userID)

	cars := h.cars.List(ctx)
	h.render.Render(ctx, "cars.html", CarsView{Cars: cars, UserID: userID})
}

// BookingForm обрабатывает GET /book/{id}. Несуществующая машина или
// сбой хранилища — редирект на список вместо формы.
func (h *CarsHandler) BookingForm(ctx *fasthttp.RequestCtx) {
	userID, _ := ctx.UserValue("user_id").(string)
	carID, _ := ctx.UserValue("id").(string)

	utils.LogRequest("GET", "/book/"+carID, userID)

	car, err := h.cars.Get(ctx, carID)
	if err != nil {
		utils.LogWarning("CarsHandler", "Форма бронирования недоступна для машины %s: %v", carID, err)
		ctx.Redirect("/cars", fasthttp.StatusFound)
		return
	}

	h.render.Render(ctx, "booking_form.html", BookingView{Car: car})
}

// Book обрабатывает POST /book. Сбои записи не показываются
// пользователю: лог для оператора и редирект на список. Конфликт в
// строгом режиме — единственный исход с собственным экраном.
func (h *CarsHandler) Book(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := ctx.UserValue("user_id").(string)
	if !ok {
		ctx.Redirect("/", fasthttp.StatusFound)
		return
	}

	carID := string(ctx.PostArgs().Peek("carId"))
	returnDate := string(ctx.PostArgs().Peek("returnDate"))

	utils.LogRequest("POST", "/book", userID)

	if err := h.cars.Book(ctx, carID, returnDate, userID); err != nil {
		if errors.Is(err, repository.ErrCarAlreadyRented) {
			car, getErr := h.cars.Get(ctx, carID)
			if getErr == nil {
				ctx.SetStatusCode(fasthttp.StatusConflict)
				h.render.Render(ctx, "booking_form.html", BookingView{Car: car, Error: msgCarAlreadyRented})
				utils.LogResponse("/book", fasthttp.StatusConflict, time.Since(startTime))
				return
			}
		}

		utils.LogError("CarsHandler", "Ошибка бронирования, редирект без уведомления пользователя", err)
		ctx.Redirect("/cars", fasthttp.StatusFound)
		utils.LogResponse("/book", fasthttp.StatusFound, time.Since(startTime))
		return
	}

	ctx.Redirect("/cars", fasthttp.StatusFound)
	utils.LogResponse("/book", fasthttp.StatusFound, time.Since(startTime))
}

// ReturnCar обрабатывает POST /return: освобождает машину и ведёт на
// список независимо от исхода.
func (h *CarsHandler) ReturnCar(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := ctx.UserValue("user_id").(string)
	if !ok {
		ctx.Redirect("/", fasthttp.StatusFound)
		return
	}

	carID := string(ctx.PostArgs().Peek("carId"))

	utils.LogRequest("POST", "/return", userID)

	if err := h.cars.Return(ctx, carID, userID); err != nil {
		utils.LogError("CarsHandler", "Ошибка возврата, редирект без уведомления пользователя", err)
	}

	ctx.Redirect("/cars", fasthttp.StatusFound)
	utils.LogResponse("/return", fasthttp.StatusFound, time.Since(startTime))
}
