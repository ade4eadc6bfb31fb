package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kindred/internal/ai"
	"kindred/internal/config"
	"kindred/internal/cyclelog"
	"kindred/internal/engage"
	"kindred/internal/httpapi"
	"kindred/internal/store"
)

func main() {
	log.Println("[INFO] Starting kindred engagement scheduler...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.New()

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	clog, err := cyclelog.New(cfg.CycleLogPath)
	if err != nil {
		log.Fatal(err)
	}
	defer clog.Close()

	provider, err := ai.NewProvider(cfg.AIProvider)
	if err != nil {
		log.Fatal(err)
	}

	ctrlCfg := engage.DefaultControllerConfig()
	ctrlCfg.MainInterval = cfg.MainInterval
	ctrlCfg.ImmediateInterval = cfg.ImmediateInterval
	ctrlCfg.AnalyticsInterval = cfg.AnalyticsInterval
	ctrlCfg.CycleTimeout = cfg.CycleTimeout
	ctrlCfg.BombardmentCooldown = cfg.BombardmentCooldown
	ctrlCfg.MaxPersonasPerEntry = cfg.MaxPersonasPerEntry
	ctrlCfg.TestingMode = cfg.TestingMode

	controller, err := engage.NewController(ctrlCfg, st, st, st, provider, clog)
	if err != nil {
		log.Fatal(err)
	}

	go controller.Run(ctx)
	go httpapi.NewServer(cfg.HTTPAddr, controller, st).Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...", s)
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] kindred exited cleanly")
}
