package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/config"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/httpserver"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/llm"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/store"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/stream"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/ws"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	var events store.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		sb, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Fatalf("supabase store: %v", err)
		}
		events = sb
	} else {
		events = store.NewMemoryStore()
	}

	invoker := &llm.Invoker{
		Client:  llm.NewCerebrasClient(cfg.CerebrasKey),
		Timeout: cfg.CompletionWait,
	}
	emitter := &stream.Emitter{Pacer: &stream.SleepPacer{Gap: cfg.DeltaPacing}}

	handler := &ws.Handler{
		Invoker:       invoker,
		Emitter:       emitter,
		Events:        events,
		AssemblyAIKey: cfg.AssemblyAIKey,
		AuthPassword:  cfg.AuthPassword,
		DedupTTL:      cfg.DedupTTL,
		MaxTurns:      cfg.MaxHistory,
	}

	srv := httpserver.New(httpserver.Deps{
		WS:           handler,
		Events:       events,
		AuthPassword: cfg.AuthPassword,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Echo,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
