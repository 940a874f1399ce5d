package main

import (
	"log"
	"net/http"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Ralsuliman/studysync-tasks/config"
	"github.com/Ralsuliman/studysync-tasks/database"
	"github.com/Ralsuliman/studysync-tasks/handlers"
	"github.com/Ralsuliman/studysync-tasks/services"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Initialize database
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}
	defer db.Close()

	// Initialize WebSocket hub
	hub := services.NewHub(sugar)
	go hub.Run()

	// Initialize stores and services
	userStore := database.NewUserStore(db)
	taskStore := database.NewTaskStore(db, cfg.CourseList(), hub)
	mailer := services.NewMailer(services.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, sugar)
	authService := services.NewAuthService(userStore, mailer, cfg.JWTSecret, cfg.TokenTTL, cfg.APIBaseURL, sugar)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, sugar)
	taskHandler := handlers.NewTaskHandler(taskStore, authService, hub, cfg.WSRequireAuth, sugar)
	authMiddleware := handlers.NewAuthMiddleware(authService)

	// Setup router
	r := handlers.NewRouter(authHandler, taskHandler, authMiddleware)

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.OriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sugar.Infow("server starting", "port", cfg.ServerPort, "courses", cfg.CourseList())
	sugar.Fatalw("server stopped", "error", server.ListenAndServe())
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
