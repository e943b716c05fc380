package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netinsight/api/internal/handlers"
	"netinsight/internal/app"
	"netinsight/internal/utils"

	"github.com/prometheus/common/version"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/netinsight.yaml", "Configuration file path (YAML)")
		port        = flag.String("port", "", "API server port (overrides config)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Print("netinsight-api"))
		return
	}

	config, err := utils.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		config.Application.ListenPort = *port
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)
	logger.Infof("Starting netinsight API %s", version.Info())

	a, err := app.New(config, logger, "netinsight", app.Deps{})
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}

	h := handlers.NewHandlers(handlers.Options{
		Diagnostics: a.Diagnostics,
		Alerts:      a.Alerts,
		Events:      a.Events,
		Rules:       a.Rules,
		Scanner:     a.Scanner,
		Hosts:       a.Hosts,
		Logger:      logger,
	})
	router := handlers.NewRouter(h, config.Application.AllowedOrigins, a.Registry)

	addr := fmt.Sprintf(":%s", config.Application.ListenPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
	}

	logger.Infof("API server starting on port %s", config.Application.ListenPort)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down API server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
