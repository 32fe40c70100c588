package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/broadcast"
	"github.com/collab-docs/collabserver/internal/collab"
	"github.com/collab-docs/collabserver/internal/config"
	"github.com/collab-docs/collabserver/internal/logger"
	"github.com/collab-docs/collabserver/internal/registry"
	"github.com/collab-docs/collabserver/internal/rpc"
	"github.com/collab-docs/collabserver/internal/session"
	"github.com/collab-docs/collabserver/internal/store"
	"github.com/collab-docs/collabserver/internal/ws"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot store: in-memory by default, postgres when configured.
	var snapshots registry.SnapshotStore
	switch cfg.SnapshotStore {
	case "postgres":
		pg, err := store.NewPostgresSnapshots(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pg.Close()
		snapshots = pg
	default:
		snapshots = store.NewMemorySnapshots()
	}

	// Session store: in-memory by default, redis when configured.
	var sessions session.Store
	switch cfg.SessionStore {
	case "redis":
		rs, err := store.NewRedisSessions(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rs.Close()
		sessions = rs
	default:
		sessions = session.NewMemoryStore()
	}

	reg := registry.New(snapshots)
	usecases := collab.NewUseCases(sessions, reg, broadcast.New(), cfg.SessionExpiry)

	sweeper := collab.NewSweeper(usecases, reg, cfg.SessionSweepInterval, cfg.DocumentSweepInterval, cfg.DocumentTTL)
	go sweeper.Run(ctx)

	grpcServer := rpc.NewGRPCServer(usecases)
	if cfg.EnableGRPC {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.WithError(err).Fatal("failed to listen for grpc")
		}
		go func() {
			log.WithField("addr", cfg.GRPCAddr).Info("grpc server starting")
			if err := grpcServer.Serve(lis); err != nil {
				log.WithError(err).Fatal("grpc server failed")
			}
		}()
	}

	var httpServer *http.Server
	if cfg.EnableHTTP {
		httpServer = &http.Server{
			Addr:        cfg.HTTPAddr,
			Handler:     ws.NewRouter(usecases, cfg.JWTSecret),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("http server starting")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("http server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown failed")
		}
	}
	if cfg.EnableGRPC {
		grpcServer.GracefulStop()
	}

	cancel()
	log.Info("server stopped")
}
