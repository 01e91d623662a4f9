package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lojasmm/instantussd/internal/config"
	"github.com/lojasmm/instantussd/internal/gateway"
	"github.com/lojasmm/instantussd/internal/menu"
	"github.com/lojasmm/instantussd/internal/session"
	"github.com/lojasmm/instantussd/internal/store"
	"github.com/lojasmm/instantussd/internal/ussd"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	parser, err := ussd.NewParser(cfg.Separator)
	if err != nil {
		log.Fatalf("parser: %v", err)
	}

	db, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "instantussd.db"))
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	defs, err := menu.LoadFile(cfg.MenusFile)
	if err != nil {
		log.Fatalf("menus: %v", err)
	}
	registry := menu.NewRegistry()
	if err := defs.Register(registry, cfg.HomeMenu); err != nil {
		log.Fatalf("menus: %v", err)
	}

	dispatcher, err := menu.NewDispatcher(registry, db, cfg.HomeMenu)
	if err != nil {
		log.Fatalf("dispatcher: %v", err)
	}

	sessionMgr := session.NewManager()

	// Sessions are short-lived; drop idle locks and stale menu trails.
	go func() {
		ticker := time.NewTicker(cfg.SessionTTL)
		defer ticker.Stop()
		for range ticker.C {
			locks := sessionMgr.Cleanup(cfg.SessionTTL)
			trails, err := db.Cleanup(cfg.SessionTTL)
			if err != nil {
				log.Printf("instantussd: cleanup failed: %v", err)
				continue
			}
			if locks > 0 || trails > 0 {
				log.Printf("instantussd: cleanup removed %d locks, %d menu trails", locks, trails)
			}
		}
	}()

	handler := gateway.NewHandler(parser, dispatcher, sessionMgr)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      gateway.NewRouter(handler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("instantussd: listening on :%s (separator %q, home menu %s)", cfg.Port, parser.Separator(), cfg.HomeMenu)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("instantussd: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	log.Println("instantussd: stopped")
}
