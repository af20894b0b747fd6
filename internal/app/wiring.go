package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"

	httpapi "pricefeed/internal/api/http"
	"pricefeed/internal/api/http/handlers"
	"pricefeed/internal/api/http/mw"
	"pricefeed/internal/config"
	"pricefeed/internal/feed"
	"pricefeed/internal/ingest"
	"pricefeed/internal/metrics"
	natspub "pricefeed/internal/pubsub/nats"
	"pricefeed/internal/security"
	"pricefeed/internal/service"
	"pricefeed/internal/stores/clickhouse"
	"pricefeed/internal/stores/redis"
)

type Container struct {
	app *App

	// infra
	redis *redis.Client
	ch    *clickhouse.Conn
	nc    *natspub.Client

	httpSrv  *httpapi.Server
	profiler *pyroscope.Profiler

	cleanupF func()
}

func (c *Container) Start(ctx context.Context) error {
	return c.app.Start(ctx)
}

func (c *Container) Stop(ctx context.Context) error {
	if err := c.app.Shutdown(ctx); err != nil {
		return fmt.Errorf("app shutdown is failed, error=%w", err)
	}

	if c.cleanupF != nil {
		c.cleanupF()
	}
	return nil
}

// Build constructs the whole dependency graph from config.
func Build(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialized logger")

	profiler, err := metrics.InitPProf(cfg.App.InstanceID, &cfg.Metrics.Pyroscope)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize pyroscope: %w", err)
	}

	// Redis client + snapshot store
	rdb, err := redis.New(ctx, &cfg.Stores.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize redis client: %w", err)
	}
	snapshots := redis.NewSnapshotStore(rdb, cfg.Stores.Redis.Prefix, cfg.Stores.Redis.SnapshotTTL)
	lg.Infof("Successfully initialized Redis client, addr=%s", cfg.Stores.Redis.Addr)

	// ClickHouse client + candle writer
	ch, err := clickhouse.New(ctx, &cfg.Stores.ClickHouse)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize clickhouse client: %w", err)
	}
	url := strings.Split(cfg.Stores.ClickHouse.DSN, "?")
	lg.Infof("Successfully initialized ClickHouse client, url=%s", url[0])

	chWriter := clickhouse.NewWriter(lg, ch.Native, cfg.Stores.ClickHouse)

	// NATS broadcaster
	natsCl, err := natspub.New(lg, &cfg.PubSub.NATS)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize nats client: %w", err)
	}
	lg.Infof("Successfully initialized NATS client, url=%s", cfg.PubSub.NATS.URL)

	// Candle feed
	timeframe, err := cfg.Feed.BuildTimeframe()
	if err != nil {
		return nil, nil, fmt.Errorf("build timeframe: %w", err)
	}
	candleFeed, err := feed.NewCandleFeed(cfg.Feed.PairIDs(), timeframe)
	if err != nil {
		return nil, nil, fmt.Errorf("build candle feed: %w", err)
	}
	lg.Infof("Successfully initialized candle feed, timeframe=%s pairs=%d",
		timeframe.Duration, len(cfg.Feed.Pairs))

	// Service layer
	feedID := cfg.App.InstanceID
	if feedID == "" {
		feedID = fmt.Sprintf("feed-%s", timeframe.Duration)
	}
	feedService := service.NewFeedService(lg, feedID, candleFeed, natsCl, chWriter, snapshots)

	// Ingest consumer
	var consumer *ingest.Consumer
	if cfg.Ingest.Subject != "" {
		if consumer, err = ingest.NewConsumer(lg, natsCl.Conn(), cfg.Ingest.Subject, feedService); err != nil {
			return nil, nil, fmt.Errorf("build ingest consumer: %w", err)
		}
	}

	// JWT verifier (optional)
	var verifier *security.RS256Verifier
	if cfg.Security.JWT.Enabled {
		if verifier, err = security.NewRS256Verifier(&cfg.Security.JWT); err != nil {
			return nil, nil, fmt.Errorf("initialize JWT verifier: %w", err)
		}
		lg.Info("Successfully initialized JWT verifier")
	}

	// HTTP server
	h := handlers.NewHandler(lg, feedService)
	router := httpapi.BuildRouter(
		h,
		mw.NewLogging(lg),
		mw.NewCORS(&cfg.API.HTTP.CORS),
		mw.NewRateLimit(rdb.Client, mw.RateBucket{
			RefillPerSec: cfg.RateLimit.ByIP.RefillPerSec,
			Burst:        cfg.RateLimit.ByIP.Burst,
		}),
		mw.NewJWT(verifier),
	)
	httpSrv := httpapi.NewServer(lg, &cfg.API.HTTP, router)
	lg.Info("Successfully initialized HTTP server")

	c := &Container{
		app:      New(lg, httpSrv, consumer, feedService, cfg.App.SnapshotInterval),
		redis:    rdb,
		ch:       ch,
		nc:       natsCl,
		httpSrv:  httpSrv,
		profiler: profiler,
	}

	cleanupF := func() {
		ctxClean, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if c.profiler != nil {
			if err := c.profiler.Stop(); err != nil {
				lg.Errorf("Failed to stop profiler: %v", err)
			}
		}

		if err := chWriter.Close(ctxClean); err != nil {
			lg.Errorf("Failed to close clickhouse writer: %v", err)
		}

		if err := ch.Close(); err != nil {
			lg.Errorf("Failed to close clickhouse client: %v", err)
		}

		if err := natsCl.Close(); err != nil {
			lg.Errorf("Failed to close nats client: %v", err)
		}

		if err := rdb.Close(); err != nil {
			lg.Errorf("Failed to close redis client: %v", err)
		}

		lg.Info("Successfully cleaned up dependencies")
	}

	return c, cleanupF, nil
}
