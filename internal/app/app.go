package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"pricefeed/internal/ingest"
	"pricefeed/internal/service"
)

type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

type App struct {
	log         logger.Logger
	httpSrv     HTTPServer
	consumer    *ingest.Consumer
	feedService *service.FeedService

	snapshotEvery time.Duration
	stopSnapshots chan struct{}
}

func New(
	log logger.Logger,
	httpSrv HTTPServer,
	consumer *ingest.Consumer,
	feedService *service.FeedService,
	snapshotEvery time.Duration,
) *App {
	return &App{
		log:           log,
		httpSrv:       httpSrv,
		consumer:      consumer,
		feedService:   feedService,
		snapshotEvery: snapshotEvery,
		stopSnapshots: make(chan struct{}),
	}
}

func (a *App) Start(ctx context.Context) error {
	if err := a.feedService.RestoreFromSnapshot(ctx); err != nil {
		return err
	}

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return err
		}
	}

	go func() {
		if err := a.httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("Start HTTP server is error=%v", err)
		}
	}()

	if a.snapshotEvery > 0 {
		go a.snapshotLoop()
	}

	a.log.Info("App started")
	return nil
}

func (a *App) snapshotLoop() {
	t := time.NewTicker(a.snapshotEvery)
	defer t.Stop()

	for {
		select {
		case <-a.stopSnapshots:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := a.feedService.Snapshot(ctx); err != nil {
				a.log.Errorf("Periodic feed snapshot failed: %v", err)
			}
			cancel()
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	close(a.stopSnapshots)

	if a.consumer != nil {
		if err := a.consumer.Stop(); err != nil {
			a.log.Errorf("Failed to stop ingest consumer: %v", err)
		}
	}

	// final snapshot so a restart resumes where we stopped
	if err := a.feedService.Snapshot(ctx); err != nil {
		a.log.Errorf("Final feed snapshot failed: %v", err)
	}

	if err := a.httpSrv.Shutdown(ctx); err != nil {
		return err
	}

	a.log.Info("App stopped")
	return nil
}
