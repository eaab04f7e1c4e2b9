package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/glinharesb/hkdf-vault/internal/api"
	"github.com/glinharesb/hkdf-vault/internal/audit"
	"github.com/glinharesb/hkdf-vault/internal/config"
	"github.com/glinharesb/hkdf-vault/internal/hsm"
	"github.com/glinharesb/hkdf-vault/internal/interceptor"
	"github.com/glinharesb/hkdf-vault/internal/server"
	"github.com/glinharesb/hkdf-vault/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	kdfCfg, err := cfg.KDF()
	if err != nil {
		slog.Error("kdf config", "error", err)
		os.Exit(1)
	}

	auditLogger := audit.NewLogger(cfg.AuditBuffer, cfg.AuditRetain, os.Stdout)
	defer auditLogger.Close()

	sessions, err := session.NewManager(hsm.NewSoftwareHSM(), session.Options{
		KDF:         kdfCfg,
		MaxSessions: cfg.MaxSessions,
		KEKSecret:   []byte(cfg.KEKSecret),
		LegacySlots: cfg.LegacyKeySlots,
	})
	if err != nil {
		slog.Error("session manager", "error", err)
		os.Exit(1)
	}
	defer sessions.CloseAll()

	slog.Info("kdf configured",
		"static_salt", kdfCfg.StaticSalt != nil,
		"max_info", cfg.MaxInfo,
		"legacy_key_slots", cfg.LegacyKeySlots,
	)

	limiter := interceptor.NewLimiter(cfg.RateLimitRPS)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.RecoveryUnary(logger),
			interceptor.LoggingUnary(logger),
			limiter.Unary(),
			interceptor.AuthUnary(cfg.AuthToken),
		),
		grpc.ChainStreamInterceptor(
			interceptor.RecoveryStream(logger),
			interceptor.LoggingStream(logger),
			limiter.Stream(),
			interceptor.AuthStream(cfg.AuthToken),
		),
	)

	api.RegisterKDFServer(srv, server.NewKDFServer(sessions, auditLogger))
	api.RegisterKeyServer(srv, server.NewKeyServer(sessions, auditLogger))
	api.RegisterAuditServer(srv, server.NewAuditServer(auditLogger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	for _, name := range []string{api.KDFServiceName, api.KeyServiceName, api.AuditServiceName} {
		healthSrv.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	reflection.Register(srv)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		slog.Error("listen", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", cfg.GRPCAddr)
		if err := srv.Serve(lis); err != nil {
			slog.Error("serve", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down", "sessions", sessions.Len())
	healthSrv.Shutdown()

	// Graceful shutdown with 10s timeout
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		slog.Warn("graceful shutdown timed out, forcing stop")
		srv.Stop()
	}
}
