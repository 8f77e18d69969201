package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"skalgpt-be/internal/bootstrap"
	"skalgpt-be/internal/config"
	"skalgpt-be/internal/server"
	"skalgpt-be/internal/tracer"
	"skalgpt-be/pkg/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(ctx, gormDB, cfg)
	defer container.Close()

	shutdownTracer := tracer.InitTracer(cfg.App, container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		container.Logger.Error("Main", "Title consumer failed to start", map[string]interface{}{"error": err})
	}
	if container.NotificationService != nil {
		if err := container.NotificationService.Start(); err != nil {
			container.Logger.Error("Main", "Title notifier failed to start", map[string]interface{}{"error": err})
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			container.Logger.Error("Main", "Server shutdown failed", map[string]interface{}{"error": err})
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("Main", "Server stopped", map[string]interface{}{"error": err})
	}
	_ = container.Logger.Sync()
}
