// Package main is the entry point for the Contagio match server.
// It only handles dependency injection and server initialization.
// NO game rules belong here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/contagio-game/server/internal/engine"
	"github.com/contagio-game/server/internal/events"
	"github.com/contagio-game/server/internal/infra/storage"
	"github.com/contagio-game/server/internal/network"
	"github.com/contagio-game/server/internal/platform/config"
	"github.com/contagio-game/server/internal/platform/logger"
	"github.com/contagio-game/server/internal/platform/metrics"
)

// defaultMatchID is the singleton lobby every connection lands in unless a
// ?match= query names another one.
const defaultMatchID = "MATCH_1"

// sqlitePersisterAdapter translates engine events to storage records.
type sqlitePersisterAdapter struct {
	repo storage.EventRepository
}

func (a *sqlitePersisterAdapter) Append(event events.MatchEvent) error {
	payloadBytes, _ := json.Marshal(event.Payload)

	rec := storage.EventRecord{
		ID:        event.ID,
		MatchID:   event.MatchID,
		Timestamp: event.Timestamp,
		Type:      string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   string(payloadBytes),
		Round:     event.Round,
	}

	start := time.Now()
	err := a.repo.Save(context.Background(), rec)
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

// sqliteArchiverAdapter stores finished matches for the history API.
type sqliteArchiverAdapter struct {
	repo storage.MatchRepository
}

func (a *sqliteArchiverAdapter) SaveResult(matchID string, win engine.WinRecord, rounds int, gameLog []string) error {
	logBytes, _ := json.Marshal(gameLog)
	return a.repo.Save(context.Background(), storage.MatchRecord{
		ID:         matchID,
		Winner:     win.Winner,
		Reason:     win.Reason,
		Rounds:     rounds,
		GameLog:    string(logBytes),
		FinishedAt: time.Now(),
	})
}

func main() {
	log.Println("[CONTAGIO-SERVER] Initializing Contagio Authoritative Server...")

	cfg := config.Load()
	appLogger := logger.NewLogger()

	appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	defer db.Close()

	eventRepo := storage.NewSQLiteEventRepository(db)
	matchRepo := storage.NewSQLiteMatchRepository(db)
	mysteryRepo := storage.NewSQLiteMysteryRepository(db)

	persister := &sqlitePersisterAdapter{repo: eventRepo}
	archiver := &sqliteArchiverAdapter{repo: matchRepo}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(appLogger)

	appLogger.Info("Bootstrapping Match Manager...")
	settings := engine.Settings{
		MinPlayers:    cfg.MinPlayers,
		NightDuration: cfg.NightDuration,
		DayDuration:   cfg.DayDuration,
	}
	manager := engine.NewManager(settings, hub, appLogger, persister, archiver)
	manager.Create(ctx, defaultMatchID)

	apiBridge := network.NewAPIBridge(mysteryRepo, matchRepo, appLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("match")
		if matchID == "" {
			matchID = defaultMatchID
		}
		match := manager.Create(ctx, matchID)
		network.ServeWs(hub, match, appLogger, w, r)
	})

	apiBridge.RegisterRoutes(mux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	mux.HandleFunc("/join-qr", func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(cfg.PublicURL, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		appLogger.Info("HTTP API & WS Server listening on " + cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down...")
		manager.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Server exited with error: " + err.Error())
		os.Exit(1)
	}
	log.Println("[CONTAGIO-SERVER] Server stopped.")
}
