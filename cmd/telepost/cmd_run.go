package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"

	"telepost/pkg/bot"
	"telepost/pkg/delivery"
	"telepost/pkg/gate"
	"telepost/pkg/logger"
	"telepost/pkg/registry"
	"telepost/pkg/server"
	"telepost/pkg/session"
	"telepost/pkg/store"
	"telepost/pkg/transport"
	"telepost/pkg/vault"
	"telepost/pkg/wizard"
)

const shutdownTimeout = 5 * time.Second

func runCmd() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Printf("Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	reg := registry.New(db)
	vlt := vault.New(db, cfg.TokenTTL())
	sessions := session.NewStore()

	tg, err := telego.NewBot(cfg.Telegram.Token, telego.WithDefaultLogger(false, false))
	if err != nil {
		fmt.Printf("Error creating bot: %v\n", err)
		os.Exit(1)
	}
	client, err := transport.NewTelegram(ctx, tg, cfg.Telegram.LinkHost)
	if err != nil {
		fmt.Printf("Error connecting to Telegram: %v\n", err)
		os.Exit(1)
	}

	engine := delivery.NewEngine(client, cfg.SendInterval())
	resolver := gate.New(vlt, reg, client)
	machine := wizard.NewMachine(sessions, reg, vlt, engine, client, cfg.Delivery.MaxReportedErrors)
	runtime := bot.New(tg, client, machine, resolver, cfg.IsAdmin)
	srv := server.NewServer(cfg)

	sweeper := vault.NewSweeper(vlt, cfg.Tokens.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		fmt.Printf("Error starting token sweeper: %v\n", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := runtime.Start(runCtx); err != nil {
			return err
		}
		<-runCtx.Done()
		runtime.Stop()
		return nil
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return err
		}
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	fmt.Printf("✓ Telepost started as @%s\n", client.BotHandle())
	fmt.Printf("✓ Liveness endpoint on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil {
		logger.ErrorCF("main", "Runtime exited with error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	logger.InfoC("main", "Shutdown complete")
}
