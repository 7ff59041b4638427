/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave entitlement engine server: loads
  configuration, opens the store, seeds the catalog, starts the daily
  scheduler, and serves the admin API.

STARTUP SEQUENCE:
  1. Parse command-line flags and the TOML config file
  2. Open the SQLite store
  3. Seed the leave type / rule catalog when one is provided
  4. Start the daily scheduler (annual reset + carryover warnings)
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to TOML config file (optional; defaults apply)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config; ":memory:" works)
  -seed    Path to a JSON catalog to load at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections (30s drain)
  2. Cancel the scheduler context and wait for the in-flight pass
  3. Close the database
*/
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

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/lifecycle"
	"github.com/warp/leave-engine/notify"
	"github.com/warp/leave-engine/scheduler"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	seedPath := flag.String("seed", "", "path to a JSON catalog to seed at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			log.Fatalf("Failed to read seed catalog: %v", err)
		}
		catalog, err := factory.ParseCatalog(data)
		if err != nil {
			log.Fatalf("Failed to parse seed catalog: %v", err)
		}
		if err := catalog.Seed(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Printf("Seeded %d leave types, %d rules, %d employees",
			len(catalog.LeaveTypes), len(catalog.Rules), len(catalog.Employees))
	}

	engine := lifecycle.NewEngine(store)
	dispatcher := notify.NewDispatcher(notify.NewSMTP(cfg.SMTP))
	handler := api.NewHandler(engine, store, dispatcher)
	router := api.NewRouter(handler)

	schedCtx, cancelSched := context.WithCancel(context.Background())
	sched := scheduler.New(engine, store, dispatcher, cfg.Scheduler.IntervalDuration())
	if cfg.Scheduler.Enabled {
		sched.Start(schedCtx)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	cancelSched()
	sched.Wait()

	log.Println("Server stopped")
}
