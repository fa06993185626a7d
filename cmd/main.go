package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"kindred/backend/internal/api/handler"
	"kindred/backend/internal/catalog"
	"kindred/backend/internal/config"
	"kindred/backend/internal/hub"
	"kindred/backend/internal/models"
	"kindred/backend/internal/report"
	"kindred/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.ChatSession{},
		&models.Interest{},
		&models.Report{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Kindred Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	cat := catalog.New()
	if err := cat.Reload(s); err != nil {
		log.Fatalf("Failed to load interest catalog: %v", err)
	}

	reports := report.NewService(s)
	engine := hub.NewHub(s, cat, reports, config.DefaultEngine())
	engine.RecoverStaleSessions()

	go engine.Run(context.Background())

	r := gin.Default()
	h := handler.NewHandler(engine, s, cat, cfg)

	r.GET("/anonid", h.GetAnonID)
	r.GET("/interests", h.ListInterests)
	r.GET("/ws", h.ServeWebSocket)

	r.POST("/admin/login", h.AdminLogin)
	admin := r.Group("/admin", h.AdminAuth())
	admin.GET("/interests", h.AdminListInterests)
	admin.POST("/interests", h.AdminCreateInterest)
	admin.DELETE("/interests/:name", h.AdminDeleteInterest)

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
