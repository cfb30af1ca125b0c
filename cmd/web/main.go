package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/AdamBeresnev/op-field-scheduler/internal/config"
	"github.com/AdamBeresnev/op-field-scheduler/internal/db"
	"github.com/AdamBeresnev/op-field-scheduler/internal/service"
	"github.com/AdamBeresnev/op-field-scheduler/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	tournaments := service.NewTournamentService(database, store.NewTournamentStore(database), cfg.ScheduleHorizon)
	router := newRouter(cfg, tournaments)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
