package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/pickup-server/internal/engine"
	"github.com/MRamiBalles/pickup-server/internal/events"
	"github.com/MRamiBalles/pickup-server/internal/infra/storage"
	"github.com/MRamiBalles/pickup-server/internal/network"
	"github.com/MRamiBalles/pickup-server/internal/platform/config"
	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the mission server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	appLogger := logger.NewLoggerWithOutput(os.Stdout, cfg.LogLevel)
	appLogger.Info("[ITEM-SERVER] Initializing authoritative item server...")

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	for _, name := range cfg.Placements {
		if _, err := registry.Get(name); err != nil {
			return fmt.Errorf("placement: %w", err)
		}
	}

	appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	playerRepo := storage.NewSQLitePlayerRepository(db)

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(&SQLitePersisterAdapter{repo: eventRepo, gameID: cfg.GameID})
	eventLog.OnPersistError(func(e events.GameEvent, err error) {
		appLogger.Error(fmt.Sprintf("Failed to persist event %s (%s): %v", e.ID, e.Type, err))
	})

	appLogger.Info("Bootstrapping mission engine...")
	gameEngine := engine.NewEngine(registry, engine.Options{
		Items: engine.ItemConfig{
			RespawnTime: cfg.RespawnTime(),
			PopTime:     cfg.PopTime(),
		},
		TickRate: cfg.Tick(),
	}, eventLog, appLogger)

	if err := bootstrapPlayers(ctx, cfg, playerRepo, storage.NewReconstructor(eventRepo), gameEngine, appLogger); err != nil {
		return err
	}

	hub := network.NewHub(gameEngine, appLogger, cfg.ClientSendBuffer)
	gameEngine.Items().SetNotifier(hub)

	// The engine outlives the signal so the final snapshot can still run on
	// the logic goroutine; it is stopped explicitly below.
	gameEngine.Start(context.WithoutCancel(ctx))
	defer gameEngine.Stop()
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	for _, name := range cfg.Placements {
		if _, err := gameEngine.Place(ctx, name); err != nil {
			return err
		}
	}

	// Automated inventory backup routine
	go func() {
		backupTicker := time.NewTicker(cfg.SnapshotEvery())
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				if err := snapshotPlayers(ctx, cfg.GameID, playerRepo, gameEngine); err != nil && ctx.Err() == nil {
					appLogger.Warn("Inventory snapshot failed: " + err.Error())
				}
			}
		}
	}()

	mux := newAPI(gameEngine)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWS(hub, cfg.MaxMessagesPerSecond, w, r)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("[ITEM-SERVER] HTTP API & WS Server listening on " + cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	appLogger.Info("[ITEM-SERVER] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// HTTP handlers must be drained before the final snapshot.
	shutdownErr := srv.Shutdown(shutdownCtx)
	if err := snapshotPlayers(shutdownCtx, cfg.GameID, playerRepo, gameEngine); err != nil {
		appLogger.Warn("Final inventory snapshot failed: " + err.Error())
	}
	gameEngine.Stop()
	return shutdownErr
}
