package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"carrental-prototype/internal/cache"
	"carrental-prototype/internal/config"
	"carrental-prototype/internal/handlers"
	"carrental-prototype/internal/middleware"
	"carrental-prototype/internal/repository"
	"carrental-prototype/internal/services"
	"carrental-prototype/internal/utils"
	"carrental-prototype/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && os.Getenv("ENV") != "docker" {
		log.Println("No .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	dbConnectionPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbConnectionPool.Close()

	if err := dbConnectionPool.Ping(context.Background()); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}
	utils.LogSuccess("Main", "Подключение к базе данных установлено")

	if err := runMigrations(dbConnectionPool, cfg.MigrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	utils.LogSuccess("Main", "Миграции применены")

	redisCache := cache.NewRedisCache(cfg.RedisAddr)
	defer redisCache.Close()

	// Redis хранит сессии: без него никто не сможет войти, поэтому его
	// недоступность на старте так же фатальна, как и недоступность базы
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Fatalf("Redis ping failed: %v", err)
	}
	utils.LogSuccess("Main", "Подключение к Redis установлено")

	workerPool := worker.NewWorkerPool(cfg.WorkerCount, cfg.QueueSize, cfg.MaxRetries)
	workerPool.Start()

	userRepo := repository.NewUserRepository(dbConnectionPool)
	carRepo := repository.NewCarRepository(dbConnectionPool)
	eventRepo := repository.NewRentalEventRepository(dbConnectionPool)

	authService := services.NewAuthService(userRepo)
	sessionService := services.NewSessionService(redisCache, cfg.SessionSecret, cfg.SessionTTL)
	carService := services.NewCarServiceWithCache(carRepo, eventRepo, redisCache, cfg.StrictBooking)
	carService.SetWorkerPool(workerPool)

	renderer, err := handlers.NewRenderer(cfg.ViewsDir)
	if err != nil {
		log.Fatalf("Template loading failed: %v", err)
	}

	authHandler := handlers.NewAuthHandler(authService, sessionService, renderer)
	carsHandler := handlers.NewCarsHandler(carService, renderer)
	healthHandler := handlers.NewHealthHandler(workerPool)
	authMiddleware := middleware.NewAuthMiddleware(sessionService)

	router := newRouter(cfg.PublicDir, authHandler, carsHandler, healthHandler, authMiddleware)

	httpServer := &fasthttp.Server{
		Handler: router,
		Name:    "carrental-prototype",
	}

	go func() {
		utils.LogInfo("Main", "Сервер запускается на порту %s", cfg.Port)
		if err := httpServer.ListenAndServe(":" + cfg.Port); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChannel

	utils.LogInfo("Main", "Остановка сервера...")
	if err := httpServer.Shutdown(); err != nil {
		utils.LogError("Main", "Ошибка остановки сервера", err)
	}

	if err := workerPool.Shutdown(10 * time.Second); err != nil {
		utils.LogError("Main", "Ошибка остановки пула воркеров", err)
	}

	utils.LogSuccess("Main", "Сервер остановлен")
}

func runMigrations(pool *pgxpool.Pool, migrationsDir string) error {
	dbForMigrate := stdlib.OpenDBFromPool(pool)
	defer dbForMigrate.Close()

	driver, err := pgxmigrate.WithInstance(dbForMigrate, &pgxmigrate.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "pgx", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// newRouter собирает таблицу маршрутов. Маршрутизатор — обычный switch
// по пути и методу, как и весь транспорт на fasthttp.
func newRouter(
	publicDir string,
	authHandler *handlers.AuthHandler,
	carsHandler *handlers.CarsHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) fasthttp.RequestHandler {
	staticFS := &fasthttp.FS{
		Root:        publicDir,
		PathRewrite: fasthttp.NewPathPrefixStripper(len("/public")),
	}
	staticHandler := staticFS.NewRequestHandler()

	listCars := authMiddleware.RequireAuth(carsHandler.ListCars)
	bookingForm := authMiddleware.RequireAuth(carsHandler.BookingForm)
	book := authMiddleware.RequireAuth(carsHandler.Book)
	returnCar := authMiddleware.RequireAuth(carsHandler.ReturnCar)

	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/" && method == fasthttp.MethodGet:
			authHandler.LoginPage(ctx)

		case path == "/login" && method == fasthttp.MethodPost:
			authHandler.Login(ctx)

		case path == "/logout" && method == fasthttp.MethodGet:
			authHandler.Logout(ctx)

		case path == "/cars" && method == fasthttp.MethodGet:
			listCars(ctx)

		case strings.HasPrefix(path, "/book/") && method == fasthttp.MethodGet:
			ctx.SetUserValue("id", strings.TrimPrefix(path, "/book/"))
			bookingForm(ctx)

		case path == "/book" && method == fasthttp.MethodPost:
			book(ctx)

		case path == "/return" && method == fasthttp.MethodPost:
			returnCar(ctx)

		case path == "/health" && method == fasthttp.MethodGet:
			healthHandler.Health(ctx)

		case strings.HasPrefix(path, "/public/"):
			staticHandler(ctx)

		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("404 Not Found")
		}
	}
}
