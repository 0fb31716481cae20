package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental-prototype/internal/cache"
	"carrental-prototype/internal/models"
	"carrental-prototype/internal/repository"
)

type fakeCarStore struct {
	cars      map[string]*models.Car
	listErr   error
	listCalls int
}

func newFakeCarStore(cars ...*models.Car) *fakeCarStore {
	store := &fakeCarStore{cars: map[string]*models.Car{}}
	for _, car := range cars {
		store.cars[car.ID] = car
	}
	return store
}

func (f *fakeCarStore) List(ctx context.Context) ([]models.Car, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Car
	for _, car := range f.cars {
		out = append(out, *car)
	}
	return out, nil
}

func (f *fakeCarStore) GetByID(ctx context.Context, carID string) (*models.Car, error) {
	car, ok := f.cars[carID]
	if !ok {
		return nil, repository.ErrCarNotFound
	}
	copied := *car
	return &copied, nil
}

func (f *fakeCarStore) Book(ctx context.Context, carID, userID, returnDate string) error {
	car, ok := f.cars[carID]
	if !ok {
		return repository.ErrCarNotFound
	}
	car.RentedBy = &userID
	car.ReturnDate = returnDate
	car.Version++
	return nil
}

func (f *fakeCarStore) BookAvailable(ctx context.Context, carID, userID, returnDate string) error {
	car, ok := f.cars[carID]
	if !ok {
		return repository.ErrCarNotFound
	}
	if car.RentedBy != nil {
		return repository.ErrCarAlreadyRented
	}
	return f.Book(ctx, carID, userID, returnDate)
}

func (f *fakeCarStore) Return(ctx context.Context, carID string) error {
	car, ok := f.cars[carID]
	if !ok {
		return repository.ErrCarNotFound
	}
	car.RentedBy = nil
	car.ReturnDate = ""
	car.Version++
	return nil
}

type fakeEventStore struct {
	events    []models.RentalEvent
	insertErr error
}

func (f *fakeEventStore) Insert(ctx context.Context, event *models.RentalEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.events = append(f.events, *event)
	return nil
}

// fakeCarCache хранит значения в памяти и отвечает redis.Nil на
// отсутствующий ключ, как настоящий клиент
type fakeCarCache struct {
	data   map[string][]byte
	getErr error
}

func newFakeCarCache() *fakeCarCache {
	return &fakeCarCache{data: map[string][]byte{}}
}

func (f *fakeCarCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = data
	return nil
}

func (f *fakeCarCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	data, ok := f.data[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCarCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func availableCar(id, model string) *models.Car {
	return &models.Car{ID: id, Model: model, ReturnDate: ""}
}

func TestListFailOpen(t *testing.T) {
	store := newFakeCarStore()
	store.listErr = errors.New("db down")
	service := NewCarService(store, &fakeEventStore{}, false)

	cars := service.List(context.Background())

	assert.NotNil(t, cars)
	assert.Empty(t, cars)
}

func TestListReturnsCars(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"), availableCar("c2", "Corolla"))
	service := NewCarService(store, &fakeEventStore{}, false)

	cars := service.List(context.Background())

	assert.Len(t, cars, 2)
}

func TestBookAvailableCar(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	events := &fakeEventStore{}
	service := NewCarService(store, events, false)

	err := service.Book(context.Background(), "c1", "2024-01-05", "u1")
	require.NoError(t, err)

	car, err := service.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, car.RentedBy)
	assert.Equal(t, "u1", *car.RentedBy)
	assert.Equal(t, "2024-01-05", car.ReturnDate)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventActionBook, events.events[0].Action)
	assert.Equal(t, "c1", events.events[0].CarID)
}

func TestBookOverwritesRentedCar(t *testing.T) {
	// Режим совместимости: второй арендатор молча вытесняет первого
	store := newFakeCarStore(availableCar("c1", "Civic"))
	service := NewCarService(store, &fakeEventStore{}, false)

	require.NoError(t, service.Book(context.Background(), "c1", "2024-01-05", "u1"))
	require.NoError(t, service.Book(context.Background(), "c1", "2024-02-01", "u2"))

	car, err := service.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, car.RentedBy)
	assert.Equal(t, "u2", *car.RentedBy)
	assert.Equal(t, "2024-02-01", car.ReturnDate)
}

func TestBookStrictConflict(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	service := NewCarService(store, &fakeEventStore{}, true)

	require.NoError(t, service.Book(context.Background(), "c1", "2024-01-05", "u1"))

	err := service.Book(context.Background(), "c1", "2024-02-01", "u2")
	assert.ErrorIs(t, err, repository.ErrCarAlreadyRented)

	// первый арендатор не потерян
	car, getErr := service.Get(context.Background(), "c1")
	require.NoError(t, getErr)
	assert.Equal(t, "u1", *car.RentedBy)
	assert.Equal(t, "2024-01-05", car.ReturnDate)
}

func TestBookUnknownCar(t *testing.T) {
	store := newFakeCarStore()
	events := &fakeEventStore{}
	service := NewCarService(store, events, false)

	err := service.Book(context.Background(), "missing", "2024-01-05", "u1")
	assert.ErrorIs(t, err, repository.ErrCarNotFound)
	assert.Empty(t, events.events)
}

func TestReturnIdempotent(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	events := &fakeEventStore{}
	service := NewCarService(store, events, false)

	require.NoError(t, service.Book(context.Background(), "c1", "2024-01-05", "u1"))

	require.NoError(t, service.Return(context.Background(), "c1", "u1"))
	require.NoError(t, service.Return(context.Background(), "c1", "u1"))

	car, err := service.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, car.RentedBy)
	assert.Equal(t, "", car.ReturnDate)
}

func TestListMissFillsCacheThenServesFromIt(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	carCache := newFakeCarCache()
	service := NewCarServiceWithCache(store, &fakeEventStore{}, carCache, false)

	cars := service.List(context.Background())
	require.Len(t, cars, 1)
	assert.Equal(t, 1, store.listCalls)
	assert.Contains(t, carCache.data, cache.CarListKey())

	// повторный запрос обслуживается кешем, хранилище не трогаем
	cars = service.List(context.Background())
	assert.Len(t, cars, 1)
	assert.Equal(t, 1, store.listCalls)
}

func TestListServedFromWarmCacheEvenWhenStoreDown(t *testing.T) {
	store := newFakeCarStore()
	store.listErr = errors.New("db down")
	carCache := newFakeCarCache()
	require.NoError(t, carCache.SetJSON(context.Background(), cache.CarListKey(),
		[]models.Car{{ID: "c1", Model: "Civic"}}, cache.CarListTTL))
	service := NewCarServiceWithCache(store, &fakeEventStore{}, carCache, false)

	cars := service.List(context.Background())

	require.Len(t, cars, 1)
	assert.Equal(t, "c1", cars[0].ID)
	assert.Equal(t, 0, store.listCalls)
}

func TestListCacheFailureFallsBackToStore(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	carCache := newFakeCarCache()
	carCache.getErr = errors.New("redis down")
	service := NewCarServiceWithCache(store, &fakeEventStore{}, carCache, false)

	cars := service.List(context.Background())

	assert.Len(t, cars, 1)
	assert.Equal(t, 1, store.listCalls)
}

func TestBookInvalidatesListCache(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	carCache := newFakeCarCache()
	service := NewCarServiceWithCache(store, &fakeEventStore{}, carCache, false)

	cars := service.List(context.Background())
	require.Len(t, cars, 1)
	require.Nil(t, cars[0].RentedBy)

	require.NoError(t, service.Book(context.Background(), "c1", "2024-01-05", "u1"))
	assert.NotContains(t, carCache.data, cache.CarListKey())

	// следующий запрос перечитывает хранилище и видит аренду
	cars = service.List(context.Background())
	require.Len(t, cars, 1)
	require.NotNil(t, cars[0].RentedBy)
	assert.Equal(t, "u1", *cars[0].RentedBy)
	assert.Equal(t, 2, store.listCalls)
}

func TestReturnInvalidatesListCache(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	carCache := newFakeCarCache()
	service := NewCarServiceWithCache(store, &fakeEventStore{}, carCache, false)

	require.NoError(t, service.Book(context.Background(), "c1", "2024-01-05", "u1"))

	cars := service.List(context.Background())
	require.Len(t, cars, 1)
	require.NotNil(t, cars[0].RentedBy)

	require.NoError(t, service.Return(context.Background(), "c1", "u1"))
	assert.NotContains(t, carCache.data, cache.CarListKey())

	cars = service.List(context.Background())
	require.Len(t, cars, 1)
	assert.Nil(t, cars[0].RentedBy)
}

func TestEventFailureDoesNotFailBooking(t *testing.T) {
	store := newFakeCarStore(availableCar("c1", "Civic"))
	events := &fakeEventStore{insertErr: errors.New("journal down")}
	service := NewCarService(store, events, false)

	assert.NoError(t, service.Book(context.Background(), "c1", "2024-01-05", "u1"))
}
