package app

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"thermopanel/internal/action"
	"thermopanel/internal/config"
	"thermopanel/internal/dashboard"
	"thermopanel/internal/dataclient"
	"thermopanel/internal/db"
	"thermopanel/internal/display"
	"thermopanel/internal/httpapi"
	"thermopanel/internal/live"
	"thermopanel/internal/modules/history"
	"thermopanel/internal/modules/panel"
	panelviews "thermopanel/internal/modules/panel/views"
	"thermopanel/internal/mqtt"
	"thermopanel/internal/poller"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"collaboratorURL", cfg.CollaboratorURL,
		"pollInterval", cfg.PollInterval,
		"pollTimeout", cfg.PollTimeout,
		"pollDiscardStale", cfg.PollDiscardStale,
		"actionTimeout", cfg.ActionTimeout,
		"historyEnabled", cfg.HistoryEnabled,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"deviceID", cfg.DeviceID,
	)

	var dbConn *sql.DB
	if cfg.HistoryEnabled {
		var err error
		dbConn, err = db.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(dbConn); closeErr != nil {
				logger.Error("db close", "error", closeErr)
			}
		}()
		if err := db.Migrate(dbConn, logger); err != nil {
			return err
		}
		logger.Info("database connection successful")
	}

	if err := panelviews.LoadTemplates(); err != nil {
		return err
	}
	doc, err := loadDocument()
	if err != nil {
		return err
	}
	board, err := dashboard.New(doc)
	if err != nil {
		return err
	}

	client, err := dataclient.New(cfg.CollaboratorURL, dataclient.Options{
		FetchTimeout:  cfg.PollTimeout,
		ActionTimeout: cfg.ActionTimeout,
	})
	if err != nil {
		return err
	}

	// workCtx bounds the poller, action sends and board subscribers. It is
	// cancelled after the HTTP server stops accepting requests.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	sender := action.NewSender(workCtx, client, logger.With("component", "action"))
	hub := live.NewHub(logger.With("component", "live"))

	mux := httpapi.NewMux(dbConn)
	panel.RegisterFeature(workCtx, mux, board, sender, hub, logger.With("component", "panel"))
	if dbConn != nil {
		history.RegisterFeature(workCtx, mux, dbConn, board, cfg, logger)
	}

	var bridge *mqtt.Bridge
	if cfg.MQTTEnabled() {
		bridge = startBridge(ctx, workCtx, cfg, board, sender, logger.With("component", "mqtt"))
	}

	p := poller.New(client, board, poller.Options{
		Interval:     cfg.PollInterval,
		DiscardStale: cfg.PollDiscardStale,
		Logger:       logger.With("component", "poller"),
	})
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_ = p.Run(workCtx)
	}()

	defer func() {
		hub.Close()
		// The bridge forwards broker actions into the sender, so it stops first.
		if bridge != nil {
			bridge.Disconnect()
		}
		cancelWork()
		<-pollDone
		sender.Close()
		board.Wait()
	}()

	srv := httpapi.NewServer(cfg.HTTPAddr, mux, logger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// loadDocument renders the page skeleton and collects the fields and chart
// surfaces it declares.
func loadDocument() (*display.Document, error) {
	var buf bytes.Buffer
	if err := panelviews.RenderSkeleton(&buf); err != nil {
		return nil, fmt.Errorf("render skeleton: %w", err)
	}
	return display.Parse(&buf)
}

// startBridge publishes every applied view and forwards broker actions. A
// broker that is down at startup is logged; the client keeps retrying.
func startBridge(ctx, workCtx context.Context, cfg config.Config, board *dashboard.Board, sender *action.Sender, logger *slog.Logger) *mqtt.Bridge {
	bridge := mqtt.NewBridge(cfg, sender, logger)
	board.Subscribe(workCtx, func(v dashboard.View) {
		if err := bridge.PublishState(v); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
			logger.Warn("publish state failed", "seq", v.Seq, "error", err)
		}
	})

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := bridge.Connect(connectCtx); err != nil {
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}
	return bridge
}
