package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-backoffice/internal/auth"
	"ms-backoffice/internal/catalog"
	catalog_api "ms-backoffice/internal/catalog/api"
	catalog_db "ms-backoffice/internal/catalog/db"
	"ms-backoffice/internal/config"
	"ms-backoffice/internal/database/migrations"
	"ms-backoffice/internal/employees"
	employees_api "ms-backoffice/internal/employees/api"
	"ms-backoffice/internal/employees/badge"
	employees_db "ms-backoffice/internal/employees/db"
	"ms-backoffice/internal/events"
	events_api "ms-backoffice/internal/events/api"
	events_db "ms-backoffice/internal/events/db"
	"ms-backoffice/internal/kafka"
	"ms-backoffice/internal/logger"
	"ms-backoffice/internal/mealplans"
	mealplans_api "ms-backoffice/internal/mealplans/api"
	mealplans_db "ms-backoffice/internal/mealplans/db"
	"ms-backoffice/internal/media"
	"ms-backoffice/internal/ml"
	"ms-backoffice/internal/models"
	"ms-backoffice/internal/recipes"
	recipes_api "ms-backoffice/internal/recipes/api"
	recipes_db "ms-backoffice/internal/recipes/db"
	"ms-backoffice/internal/report"
	report_api "ms-backoffice/internal/report/api"
	"ms-backoffice/internal/users"
	users_api "ms-backoffice/internal/users/api"
	users_db "ms-backoffice/internal/users/db"
	"ms-backoffice/internal/visits"
	visits_api "ms-backoffice/internal/visits/api"
	visits_db "ms-backoffice/internal/visits/db"
)

func connectPostgres(cfg config.DatabaseConfig, logger *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	bunDB.RegisterModel((*models.RecipeTag)(nil))
	return bunDB
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Backoffice Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, logger)
	defer bunDB.Close()

	migrationOpts := migrations.DefaultOptions()
	if migrationOpts.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrationOpts)
		if err := runner.MigrateUp(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		if version, err := runner.Version(); err == nil {
			logger.Info("DATABASE", fmt.Sprintf("Schema version: %d", version))
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.VisitRecorded,
			cfg.Kafka.Topics.UnregisteredSeen,
			cfg.Kafka.Topics.EventDeleted,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, attendance events will not be published")
	}

	mediaStore := media.NewStore(cfg.Media.Root)
	tokenIssuer := auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenLifetime)
	reportCache := report.NewCache(redisClient, cfg.Redis.ReportTTL)
	mlClient := ml.NewClient(cfg.ML.BaseURL, &http.Client{Timeout: cfg.ML.Timeout}, logger)
	badgeGenerator := badge.NewGenerator(cfg.Auth.BadgeSecret)

	userService := users.NewService(&users_db.DB{Bun: bunDB}, tokenIssuer, logger)
	employeeService := employees.NewService(&employees_db.DB{Bun: bunDB}, mediaStore, badgeGenerator, logger)
	eventService := events.NewService(
		&events_db.DB{Bun: bunDB},
		mediaStore,
		producer,
		reportCache,
		mlClient,
		cfg.Kafka.Topics.EventDeleted,
		logger,
	)
	visitService := visits.NewService(
		&visits_db.DB{Bun: bunDB},
		mediaStore,
		producer,
		reportCache,
		visits.Topics{
			VisitRecorded:    cfg.Kafka.Topics.VisitRecorded,
			UnregisteredSeen: cfg.Kafka.Topics.UnregisteredSeen,
		},
		logger,
	)
	reportService := report.NewService(bunDB, reportCache, logger)
	recipeService := recipes.NewService(&recipes_db.DB{Bun: bunDB}, mediaStore, logger)
	catalogService := catalog.NewService(&catalog_db.DB{Bun: bunDB}, logger)
	mealplanService := mealplans.NewService(&mealplans_db.DB{Bun: bunDB}, logger)

	userHandler := users_api.NewHandler(userService, logger)
	employeeHandler := employees_api.NewHandler(employeeService, logger)
	eventHandler := events_api.NewHandler(eventService, logger)
	visitHandler := visits_api.NewHandler(visitService, logger)
	reportHandler := report_api.NewHandler(reportService, logger)
	recipeHandler := recipes_api.NewHandler(recipeService, logger)
	catalogHandler := catalog_api.NewHandler(catalogService, logger)
	mealplanHandler := mealplans_api.NewHandler(mealplanService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Post("/api/auth/login", userHandler.Login)
	r.Post("/api/auth/token", userHandler.Login)
	logger.Info("ROUTER", "Public auth endpoints registered at /api/auth/login and /api/auth/token")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenIssuer))
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireHR)
				r.Post("/auth/register", userHandler.Register)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Post("/me/password", userHandler.ChangePassword)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireHR)
					r.Get("/", userHandler.ListUsers)
					r.Get("/{userId}", userHandler.GetUser)
					r.Patch("/{userId}", userHandler.UpdateUser)
					r.Delete("/{userId}", userHandler.DeleteUser)
				})
			})
			logger.Info("ROUTER", "User routes registered under /api/users")

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", employeeHandler.ListEmployees)
				r.Get("/departments", employeeHandler.ListDepartments)
				r.Get("/positions", employeeHandler.ListPositions)
				r.Get("/{employeeId}", employeeHandler.GetEmployee)
				r.Get("/{employeeId}/activity", employeeHandler.GetActivity)
				r.Get("/{employeeId}/badge", employeeHandler.GetBadge)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireHR)
					r.Post("/", employeeHandler.CreateEmployee)
					r.Patch("/{employeeId}", employeeHandler.UpdateEmployee)
					r.Delete("/{employeeId}", employeeHandler.DeleteEmployee)
					r.Post("/{employeeId}/photos", employeeHandler.AddPhoto)
					r.Delete("/{employeeId}/photos/{photoId}", employeeHandler.DeletePhoto)
				})
			})
			logger.Info("ROUTER", "Employee routes registered under /api/employees")

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.ListEvents)
				r.Get("/{eventId}", eventHandler.GetEvent)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireHR)
					r.Post("/", eventHandler.CreateEvent)
					r.Patch("/{eventId}", eventHandler.UpdateEvent)
					r.Delete("/{eventId}", eventHandler.DeleteEvent)
					r.Post("/{eventId}/participants/{employeeId}", eventHandler.AddParticipant)
					r.Delete("/{eventId}/participants/{employeeId}", eventHandler.RemoveParticipant)
					r.Put("/{eventId}/video", eventHandler.ReplaceVideo)
					r.Post("/{eventId}/analysis", eventHandler.StartAnalysis)
				})
			})
			logger.Info("ROUTER", "Event routes registered under /api/events")

			r.Route("/ml", func(r chi.Router) {
				r.Use(auth.RequireML)
				r.Post("/employee_visit", visitHandler.EmployeeVisit)
				r.Post("/unregistered_visit", visitHandler.UnregisteredVisit)
			})
			logger.Info("ROUTER", "Visit ingestion routes registered under /api/ml")

			r.Get("/report/event/{eventId}", reportHandler.GetEventReport)
			logger.Info("ROUTER", "Report route registered at /api/report/event/{eventId}")

			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", recipeHandler.ListRecipes)
				r.Post("/", recipeHandler.CreateRecipe)
				r.Get("/{recipeId}", recipeHandler.GetRecipe)
				r.Post("/{recipeId}/publish", recipeHandler.SetPublished)
				r.Delete("/{recipeId}", recipeHandler.DeleteRecipe)
				r.Post("/{recipeId}/like", recipeHandler.ToggleLike)
				r.Get("/{recipeId}/comments", recipeHandler.ListComments)
				r.Post("/{recipeId}/comments", recipeHandler.CreateComment)
			})
			r.Patch("/comments/{commentId}", recipeHandler.UpdateComment)
			r.Delete("/comments/{commentId}", recipeHandler.DeleteComment)
			logger.Info("ROUTER", "Recipe routes registered under /api/recipes")

			r.Get("/ingredients", catalogHandler.ListIngredients)
			r.Get("/ingredients/{ingredientId}", catalogHandler.GetIngredient)
			r.Get("/tags", catalogHandler.ListTags)
			r.Post("/tags", catalogHandler.CreateTag)
			r.Get("/units", catalogHandler.ListUnits)
			logger.Info("ROUTER", "Catalog routes registered under /api")

			r.Route("/mealplans", func(r chi.Router) {
				r.Post("/", mealplanHandler.CreatePlan)
				r.Get("/", mealplanHandler.ListPlans)
				r.Get("/{planId}", mealplanHandler.GetPlan)
				r.Patch("/{planId}", mealplanHandler.RenamePlan)
				r.Delete("/{planId}", mealplanHandler.DeletePlan)
				r.Get("/{planId}/days", mealplanHandler.ListDays)
				r.Post("/{planId}/recipes", mealplanHandler.AddDayRecipe)
				r.Patch("/{planId}/recipes/{entryId}", mealplanHandler.SwapDayRecipe)
				r.Delete("/{planId}/recipes/{entryId}", mealplanHandler.RemoveDayRecipe)
				r.Post("/{planId}/days/{dayId}/reorder", mealplanHandler.ReorderDay)
			})
			logger.Info("ROUTER", "Meal plan routes registered under /api/mealplans")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Backoffice Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		logger.Info("HTTP", "Backoffice Service shutdown complete")
	}
}
