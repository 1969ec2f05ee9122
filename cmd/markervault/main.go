package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/JustinTDCT/MarkerVault/internal/api"
	"github.com/JustinTDCT/MarkerVault/internal/config"
	"github.com/JustinTDCT/MarkerVault/internal/db"
	"github.com/JustinTDCT/MarkerVault/internal/jobs"
	"github.com/JustinTDCT/MarkerVault/internal/repository"
	"github.com/JustinTDCT/MarkerVault/internal/scheduler"
	"github.com/JustinTDCT/MarkerVault/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("MarkerVault %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	jobQueue := jobs.NewQueue(cfg.RedisAddr)
	srv := api.NewServer(cfg, database, jobQueue)

	jobQueue.RegisterHandler(jobs.TaskBulkShift,
		jobs.NewBulkShiftHandler(srv.Engine(), srv.ItemRepo(), srv.WSHub(), cfg.BulkShiftBatchSize))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := jobQueue.Start(); err != nil {
		log.Fatalf("job queue failed to start: %v", err)
	}
	defer jobQueue.Stop()

	sched := scheduler.New(
		repository.NewItemRepository(database.DB),
		repository.NewBackupRepository(database.DB),
		repository.NewSessionRepository(database.DB),
		srv.WSHub(),
		cfg.BackupRetentionDays,
	)
	if err := sched.Start(cfg.PurgeScanSchedule); err != nil {
		log.Fatalf("scheduler failed to start: %v", err)
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
