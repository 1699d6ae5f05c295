package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/app"
	"github.com/Digital-Mercenaries/zorp/internal/config"
	"github.com/Digital-Mercenaries/zorp/internal/handlers"
	"github.com/Digital-Mercenaries/zorp/internal/router"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	if err := config.LoadConfig(*configPath); err != nil {
		logger.Fatalf("❌ Failed to load config: %v", err)
	}

	container, err := app.InitializeContainer(logger)
	if err != nil {
		logger.Fatalf("❌ Failed to initialize services: %v", err)
	}
	defer container.Cleanup()

	h := router.Handlers{
		Study:      handlers.NewStudyHandler(container.StudyReader, container.FactoryReader),
		Irys:       handlers.NewIrysHandler(container.IrysClient),
		Session:    handlers.NewSessionHandler(container.SessionManager),
		Submission: handlers.NewSubmissionHandler(container.SessionManager, container.Orchestrator),
	}
	engine := router.SetupRouter(h, logger)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Infof("🚀 zorp-backend listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("❌ Forced shutdown: %v", err)
	}
	logger.Info("✅ Server stopped")
}
