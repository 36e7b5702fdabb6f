package main

import (
	"context"
	"crypto-collector/app"
	Config "crypto-collector/config"
	"crypto-collector/routes"
	"crypto-collector/tasks"
	"crypto-collector/utility/logger"
	"crypto-collector/utility/validator"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

func main() {
	config := Config.Data{}
	config.Init("")

	collector, err := app.New(config)
	if err != nil {
		logger.Fatal("Could not start the collector : %s", err)
	}

	requestValidator, err := validator.New()
	if err != nil {
		logger.Fatal("Could not build request validator : %s", err)
	}
	router := mux.NewRouter()
	routes.Register(router, requestValidator, config, collector.Factory, collector.Repository)

	if _, err := collector.Registry.Rehydrate(); err != nil {
		logger.Error("Could not rehydrate watches : %s", err)
	}
	scheduler, err := tasks.Schedule(config, collector.Rates, collector.Registry)
	if err != nil {
		logger.Fatal("Could not schedule jobs : %s", err)
	}
	scheduler.Start()

	server := &http.Server{Addr: ":" + config.AppPort, Handler: router}
	go func() {
		logger.Info("Server started and listening on port %s", config.AppPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server stopped : %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	<-scheduler.Stop().Done()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown : %s", err)
	}
	collector.Close()
}
