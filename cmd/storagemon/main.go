package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storagemon/internal/config"
	"storagemon/internal/db"
	"storagemon/internal/events"
	"storagemon/internal/monitor"
	"storagemon/internal/notify"
)

const version = "1.0.0"

func main() {
	singleRun := flag.Bool("once", false, "Run a single poll and exit")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("storagemon v%s\n", version)
		os.Exit(0)
	}

	log.SetFlags(log.Ltime | log.Ldate)
	log.Printf("storagemon v%s starting...", version)

	cfg := config.Load()

	if err := db.Init(cfg.DBPath); err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer db.DB.Close()
	log.Printf("database ready (%s)", cfg.DBPath)

	bus := events.NewBus()
	bus.Subscribe(func(e events.Event) {
		log.Printf("[%s] %s: %s", e.Severity, e.Type, e.Message)
	})

	dispatcher := notify.NewDispatcher(cfg.ShoutrrrURL, events.SeverityWarning, 15*time.Minute, nil)
	dispatcher.Start(bus)
	defer dispatcher.Stop()

	mon, err := monitor.New(cfg, db.DB, bus)
	if err != nil {
		log.Fatalf("monitor init failed: %v", err)
	}
	defer mon.Close()
	log.Printf("restored %d wear records, uptime %dms",
		len(mon.History().Records), mon.UptimeMillis())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run immediately
	mon.Poll()

	if *singleRun {
		log.Println("single run complete")
		return
	}

	log.Printf("polling every %s, window %s", cfg.PollInterval, cfg.WindowLength)
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			log.Println("shutting down...")
			return
		case <-ticker.C:
			mon.Poll()
		}
	}
}
