package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/memberbeat/admin/internal/config"
	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/internal/repository/memory"
	"github.com/memberbeat/admin/internal/repository/mongo"
	"github.com/memberbeat/admin/internal/service"
	"github.com/memberbeat/admin/pkg/ledger"
)

func main() {
	// Load config (.env is applied inside)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	ctx := context.Background()

	stores, err := openStores(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Database error: %v", err)
	}
	defer stores.Close()

	l := openLedger(cfg.Ledger)

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, stores.Users)

	// Seed admin user on first startup
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatalf("❌ Admin seed error: %v", err)
	}

	r, stopRouter := newRouter(cfg, stores, l, authSvc)
	defer stopRouter()

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must be 0 for the publish stream (a publish can take minutes)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("🛑 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("[WARN] Shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Memberbeat admin listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// openStores picks the record store from the DATABASE_URL scheme.
func openStores(ctx context.Context, databaseURL string) (*repository.Stores, error) {
	scheme, _, _ := strings.Cut(databaseURL, "://")
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		db, err := repository.NewDB(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := repository.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		log.Println("✅ PostgreSQL connected & migrated")
		return repository.NewPostgresStores(db), nil
	case "mongodb", "mongodb+srv":
		store, err := mongo.Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		log.Println("✅ MongoDB connected & indexed")
		return store.Stores(), nil
	case "memory":
		log.Println("⚠️  Using in-memory store, records are lost on restart")
		return memory.New().Stores(), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme %q", scheme)
	}
}

// openLedger returns the relay client, or the in-process ledger when no relay
// is configured.
func openLedger(cfg config.LedgerConfig) ledger.Ledger {
	if cfg.URL == "" {
		log.Printf("⚠️  LEDGER_URL not set, using in-process ledger (owner=%t)", cfg.Owner)
		return ledger.NewMemory(cfg.Owner)
	}
	log.Printf("✅ Ledger relay at %s", cfg.URL)
	return ledger.NewClient(cfg.URL, cfg.APIKey, 30*time.Second)
}
