// Command vecdbd runs the vector database as a standalone HTTP service.
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/VantageDataChat/vecdb/internal/config"
	"github.com/VantageDataChat/vecdb/internal/vecdb"
	"github.com/VantageDataChat/vecdb/internal/vecdbhttp"
)

func main() {
	if err := os.MkdirAll("./data", 0o755); err != nil {
		log.Fatalf("[vecdbd] failed to create data directory: %v", err)
	}

	cm := config.NewManager("./data/config.json")
	if err := cm.Load(); err != nil {
		log.Fatalf("[vecdbd] failed to load config: %v", err)
	}
	cfg := cm.Get()

	database, err := vecdb.Open(cfg.SnapshotPath)
	if err != nil {
		log.Fatalf("[vecdbd] failed to load snapshot: %v", err)
	}
	defer database.Close()

	router := vecdbhttp.NewRouter(database)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		log.Printf("[vecdbd] listening on %s, snapshot at %s", cfg.ListenAddr, cfg.SnapshotPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[vecdbd] server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Printf("[vecdbd] shutting down")
	srv.Close()
}
