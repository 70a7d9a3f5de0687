/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed the house tariff if no rules version exists yet
  4. Optionally wrap rules reads with the Redis cache
  5. Configure HTTP router and start with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: billing.db)
           Use ":memory:" for an in-memory database
  -redis   Redis address for the pricing-rules cache (default: off)
  -base    Base fee used when seeding the initial tariff (default: 16000)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/billing.db"

  # Run with the rules cache
  ./server -redis="localhost:6379"

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
  - store/rulescache: Redis cache wrapper
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/previsora/billing-engine/api"
	"github.com/previsora/billing-engine/pricing"
	"github.com/previsora/billing-engine/store"
	"github.com/previsora/billing-engine/store/rulescache"
	"github.com/previsora/billing-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "billing.db", "SQLite database path")
	redisAddr := flag.String("redis", "", "Redis address for the rules cache (empty disables)")
	baseFee := flag.Int64("base", 16000, "base fee for the seeded tariff")
	flag.Parse()

	// Initialize store
	st, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer st.Close()

	// Seed the house tariff on first run
	ctx := context.Background()
	if _, err := st.LatestRules(ctx); errors.Is(err, store.ErrNoRules) {
		version, err := st.SaveRules(ctx, pricing.StandardRules(*baseFee))
		if err != nil {
			log.Fatalf("Failed to seed pricing rules: %v", err)
		}
		log.Printf("Seeded pricing rules version %d (base %d)", version, *baseFee)
	}

	// Optional Redis cache in front of rules reads
	var rules store.RulesStore = st
	if *redisAddr != "" {
		rules = rulescache.New(st, *redisAddr)
		log.Printf("Pricing rules cache enabled (%s)", *redisAddr)
	}

	handler := api.NewHandler(st, rules)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
