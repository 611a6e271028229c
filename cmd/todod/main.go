package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoapi/internal/server"
	db "todoapi/repository/db"
	inmemory "todoapi/repository/inmemory"
)

func main() {
	log.Println("starting todo service...")

	cfg := server.ReadConfig()

	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		log.Fatalf("[ERROR] failed to apply migrations: %v", err)
	}
	log.Println("[SUCCESS] migrations applied")

	userRepo, todoRepo := initRepositories(cfg)

	api := server.NewTodoAPI(userRepo, todoRepo, cfg)
	if api == nil {
		log.Fatal("[ERROR] failed to initialize API")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("service listening on %s:%d", cfg.Addr, cfg.Port)
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("[INFO] received signal %v, starting graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] graceful shutdown failed: %v", err)
		} else {
			log.Println("[SUCCESS] graceful shutdown complete")
		}

	case err := <-serverErr:
		log.Printf("[ERROR] server error: %v", err)
	}

	log.Println("service stopped")
}

func initRepositories(cfg *server.Config) (server.UserRepository, server.TodoRepository) {
	dbStorage, err := db.NewStorage(cfg.DBStr)
	if err != nil {
		log.Println("[WARN] database unreachable, falling back to in-memory storage:", err)
		inmem := inmemory.NewStorage()
		return inmem, inmem
	}
	return dbStorage, dbStorage
}
