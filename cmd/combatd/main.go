// Package main provides the combat daemon: it loads content, wires the
// engine and resolves every configured encounter once per tick, exposing a
// gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/melee/internal/config"
	"github.com/cory-johannsen/melee/internal/game/combat"
	"github.com/cory-johannsen/melee/internal/game/content"
	"github.com/cory-johannsen/melee/internal/observability"
	"github.com/cory-johannsen/melee/internal/server"
	"github.com/cory-johannsen/melee/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults and MELEE_ environment")
	contentSource := flag.String("content", "dir", "content source: dir (engine.content_dir) or db (content_documents table)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "combatd")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting combat daemon",
		zap.String("grpc_addr", cfg.Server.Addr()),
		zap.Uint64("seed", cfg.Engine.Seed),
	)

	var (
		pool *postgres.Pool
		sink combat.EventSink
	)
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		sink = postgres.NewEventRepository(pool.DB())
	}

	contentStart := time.Now()
	var c *content.Content
	switch *contentSource {
	case "dir":
		c, err = content.Load(cfg.Engine.ContentDir)
	case "db":
		if pool == nil {
			logger.Fatal("content source db requires database.enabled")
		}
		c, err = postgres.NewContentRepository(pool.DB()).Load(ctx)
	default:
		logger.Fatal("invalid content source", zap.String("content", *contentSource))
	}
	if err != nil {
		logger.Fatal("loading content", zap.String("source", *contentSource), zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("attacks", c.Catalog.Len()),
		zap.Int("actors", len(c.Actors)),
		zap.Int("encounters", len(c.Encounters)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	scripts, err := loadScripts(cfg.Engine.ScriptDir, cfg.Engine.ScriptInstructionLimit, cfg.Engine.Seed, logger)
	if err != nil {
		logger.Fatal("loading scripts", zap.Error(err))
	}
	if scripts != nil {
		defer scripts.Close()
	}

	d, err := buildDaemon(cfg.Engine, c, scripts, sink, logger)
	if err != nil {
		logger.Fatal("building engine", zap.Error(err))
	}

	healthSrv := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthSrv.Shutdown()
			grpcServer.GracefulStop()
		},
	})

	lifecycle.Add("scheduler", server.NewContextService(func(ctx context.Context) error {
		return d.run(ctx, cfg.Engine.TickInterval)
	}))

	if pool != nil {
		lifecycle.Add("postgres", server.NewContextService(func(ctx context.Context) error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
						healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
						continue
					}
					healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
				}
			}
		}))
	}

	logger.Info("combat daemon initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("encounters", d.scheduler.Encounters()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
