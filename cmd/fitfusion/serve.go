package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/ashureev/fitfusion/internal/api"
	"github.com/ashureev/fitfusion/internal/chatws"
	"github.com/ashureev/fitfusion/internal/identity"
	"github.com/ashureev/fitfusion/internal/metrics"
	"github.com/ashureev/fitfusion/internal/middleware"
	"github.com/ashureev/fitfusion/internal/retention"
	"github.com/ashureev/fitfusion/internal/store"
	"github.com/ashureev/fitfusion/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthProbeInterval = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web app, chat API and health endpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	slog.Info("Database connected", "path", cfg.DBPath)

	// Initialize handlers.
	sm := chatws.NewSessionManager()
	agentHandler := agent.NewHandler(a.svc, cfg)
	defer agentHandler.Close()
	apiHandler := api.NewHandler(a.repo, a.svc, a.catalog, sm, cfg)
	healthHandler := api.NewHealthHandler(a.repo)
	allowedOrigin := cfg.FrontendURL
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	wsHandler := chatws.NewHandler(a.svc, sm, agentHandler.RateLimiter(), allowedOrigin, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(a.repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", metrics.Handler())
	apiHandler.RegisterRoutes(r)
	agentHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// SSE connections require long timeouts, so WriteTimeout stays 0.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	sweeperDone := retention.StartWorker(gctx, a.repo, cfg.SessionTTL, retention.DefaultInterval)
	slog.Info("Session retention worker started", "session_ttl", cfg.SessionTTL)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcSrv := grpc.NewServer()
		healthSrv := health.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, healthSrv)

		g.Go(func() error {
			slog.Info("gRPC health server listening", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			probeHealth(gctx, a.repo, healthSrv)
			healthSrv.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	// Wait for shutdown signal or a failed listener.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	<-sweeperDone
	if err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}

// probeHealth mirrors database reachability into the gRPC health status
// until ctx is cancelled.
func probeHealth(ctx context.Context, repo store.Repository, hs *health.Server) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err := repo.Ping(pingCtx); err != nil {
			slog.Warn("Database unreachable, reporting NOT_SERVING", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}

	check()
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
