package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskforge/taskforge-be/internal/api"
	"github.com/taskforge/taskforge-be/internal/auth"
	"github.com/taskforge/taskforge-be/internal/config"
	"github.com/taskforge/taskforge-be/internal/database"
	"github.com/taskforge/taskforge-be/internal/email"
	"github.com/taskforge/taskforge-be/internal/logger"
	"github.com/taskforge/taskforge-be/internal/monitoring"
	"github.com/taskforge/taskforge-be/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	// Set up token signing
	authSvc := auth.New(cfg.JWTSecret)

	// Set up the notification gateway. Without an API key, emails are
	// logged and dropped instead of delivered.
	var sender email.Sender = email.LogSender{}
	if cfg.SendGridAPIKey != "" {
		sender = email.NewSendGridSender(cfg.SendGridAPIKey, cfg.SenderEmail, cfg.SenderName)
	}
	notifier := email.NewService(sender)

	// Set up services
	userService := services.NewUserService(db, authSvc, notifier, cfg.BcryptCost)
	taskService := services.NewTaskService(db)

	// Set up and run the background session sweeper
	sweeper, err := monitoring.NewSessionSweeper(userService, cfg.SessionSweepCron)
	if err != nil {
		log.Fatalf("Failed to initialize session sweeper: %v", err)
	}
	go sweeper.Run()

	// Set up router
	router := api.NewRouter(cfg.CORSOrigin, authSvc, userService, taskService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on port %d\n", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
