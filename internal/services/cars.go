package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carrental-prototype/internal/cache"
	"carrental-prototype/internal/models"
	"carrental-prototype/internal/utils"
	"carrental-prototype/internal/worker"
)

// CarStore — контракт хранилища машин, нужный сервису
type CarStore interface {
	List(ctx context.Context) ([]models.Car, error)
	GetByID(ctx context.Context, carID string) (*models.Car, error)
	Book(ctx context.Context, carID, userID, returnDate string) error
	BookAvailable(ctx context.Context, carID, userID, returnDate string) error
	Return(ctx context.Context, carID string) error
}

// EventStore — контракт операторского журнала аренды
type EventStore interface {
	Insert(ctx context.Context, event *models.RentalEvent) error
}

// CarCache — контракт кеша списка машин
type CarCache interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// CarService реализует прокатную логику: список, бронирование, возврат.
// В строгом режиме бронирование занятой машины отклоняется с конфликтом,
// в обычном режиме сохраняется last-write-wins поведение исходной системы.
type CarService struct {
	cars       CarStore
	events     EventStore
	cache      CarCache
	workerPool *worker.WorkerPool
	strict     bool
}

func NewCarService(cars CarStore, events EventStore, strict bool) *CarService {
	utils.LogSuccess("CarService", "Инициализирован сервис проката (strict: %v)", strict)
	return &CarService{
		cars:   cars,
		events: events,
		cache:  nil,
		strict: strict,
	}
}

func NewCarServiceWithCache(cars CarStore, events EventStore, carCache CarCache, strict bool) *CarService {
	utils.LogSuccess("CarService", "Инициализирован сервис проката с кешем (strict: %v)", strict)
	return &CarService{
		cars:   cars,
		events: events,
		cache:  carCache,
		strict: strict,
	}
}

// SetWorkerPool подключает пул воркеров для асинхронной записи журнала
func (s *CarService) SetWorkerPool(pool *worker.WorkerPool) {
	s.workerPool = pool
	utils.LogSuccess("CarService", "Worker Pool подключен к сервису проката")
}

// List возвращает все машины. Путь чтения работает по принципу fail-open:
// при ошибке хранилища отдаётся пустой список, а не ошибка запроса.
func (s *CarService) List(ctx context.Context) []models.Car {
	if s.cache != nil {
		var cars []models.Car
		err := s.cache.GetJSON(ctx, cache.CarListKey(), &cars)
		if err == nil {
			utils.LogSuccess("Cache", "HIT: Список машин получен из кеша (%d шт.)", len(cars))
			return cars
		} else if cache.IsMiss(err) {
			utils.LogInfo("Cache", "MISS: Список машин не найден в кеше")
		} else {
			utils.LogWarning("Cache", "Ошибка чтения из кеша: %v", err)
		}
	}

	cars, err := s.cars.List(ctx)
	if err != nil {
		utils.LogError("CarService", "Ошибка получения списка машин, отдаём пустой список", err)
		return []models.Car{}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.CarListKey(), cars, cache.CarListTTL); err != nil {
			utils.LogWarning("Cache", "Не удалось сохранить список машин в кеш: %v", err)
		}
	}

	utils.LogSuccess("CarService", "Найдено машин: %d", len(cars))
	return cars
}

// Get возвращает одну машину для формы бронирования
func (s *CarService) Get(ctx context.Context, carID string) (*models.Car, error) {
	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		utils.LogWarning("CarService", "Машина %s не найдена: %v", carID, err)
		return nil, err
	}
	return car, nil
}

// Book бронирует машину. Дата возврата принимается как есть, без
// валидации формата — контракт исходной системы.
func (s *CarService) Book(ctx context.Context, carID, returnDate, userID string) error {
	utils.LogInfo("CarService", "Бронирование машины %s пользователем %s до %q", carID, userID, returnDate)

	var err error
	if s.strict {
		err = s.cars.BookAvailable(ctx, carID, userID, returnDate)
	} else {
		err = s.cars.Book(ctx, carID, userID, returnDate)
	}
	if err != nil {
		utils.LogError("CarService", fmt.Sprintf("Ошибка бронирования машины %s", carID), err)
		return err
	}

	s.invalidateListCache(ctx)
	s.recordEvent(carID, userID, models.EventActionBook, returnDate)

	utils.LogSuccess("CarService", "Машина %s забронирована пользователем %s", carID, userID)
	return nil
}

// Return освобождает машину. Повторный возврат даёт то же итоговое
// состояние, что и однократный.
func (s *CarService) Return(ctx context.Context, carID, userID string) error {
	utils.LogInfo("CarService", "Возврат машины %s", carID)

	if err := s.cars.Return(ctx, carID); err != nil {
		utils.LogError("CarService", fmt.Sprintf("Ошибка возврата машины %s", carID), err)
		return err
	}

	s.invalidateListCache(ctx)
	s.recordEvent(carID, userID, models.EventActionReturn, "")

	utils.LogSuccess("CarService", "Машина %s возвращена", carID)
	return nil
}

func (s *CarService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.CarListKey()); err != nil {
		utils.LogWarning("Cache", "Не удалось инвалидировать кеш списка машин: %v", err)
		return
	}
	utils.LogInfo("Cache", "Инвалидирован кеш списка машин")
}

// recordEvent пишет событие в операторский журнал. Запись идёт через пул
// воркеров с повторами; отказ журнала не влияет на пользовательский ответ.
func (s *CarService) recordEvent(carID, userID, action, returnDate string) {
	if s.events == nil {
		return
	}

	event := &models.RentalEvent{
		ID:         uuid.NewString(),
		CarID:      carID,
		UserID:     userID,
		Action:     action,
		ReturnDate: returnDate,
	}

	if s.workerPool == nil {
		if err := s.events.Insert(context.Background(), event); err != nil {
			utils.LogError("CarService", "Ошибка записи события аренды", err)
		}
		return
	}

	job := worker.Job{
		ID: "event-" + event.ID,
		Task: func() error {
			return s.events.Insert(context.Background(), event)
		},
		RetryOn: func(error) bool { return true },
	}

	if err := s.workerPool.Submit(job); err != nil {
		utils.LogError("CarService", "Не удалось поставить событие аренды в очередь", err)
	}
}
