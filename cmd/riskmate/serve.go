package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/surenss861/riskmate-sub004/pkg/api"
	"github.com/surenss861/riskmate-sub004/pkg/audit"
	"github.com/surenss861/riskmate-sub004/pkg/auth"
	"github.com/surenss861/riskmate-sub004/pkg/config"
	"github.com/surenss861/riskmate-sub004/pkg/console"
	"github.com/surenss861/riskmate-sub004/pkg/identity"
)

func runServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg, audit.NewLoggerWithWriter(os.Stdout))
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	opts := []console.Option{console.WithEvidence(svc.evidence)}

	if cfg.JWTPublicKey != "" {
		keys, err := identity.NewPublicKeySetFromHex(cfg.JWTPublicKey)
		if err != nil {
			return fmt.Errorf("RISKMATE_JWT_PUBLIC_KEY: %w", err)
		}
		opts = append(opts, console.WithValidator(auth.NewJWTValidator(keys)))
	} else {
		log.Println("[riskmate] auth: RISKMATE_JWT_PUBLIC_KEY not set, API requests will be rejected")
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()
	opts = append(opts, console.WithLimiter(limiter))

	if svc.db != nil {
		opts = append(opts, console.WithReadiness(svc.db.PingContext))
	}

	apiServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           console.NewServer(svc.signing, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	healthServer := &http.Server{Addr: ":" + cfg.HealthPort, Handler: healthMux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 2)
	go func() {
		log.Printf("[riskmate] health server: :%s", cfg.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		log.Printf("[riskmate] ready: http://localhost:%s", cfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("[riskmate] shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = healthServer.Shutdown(shutdownCtx)
	return err
}

// newLimiter uses Redis when REDIS_ADDR is set so replicas share one budget.
func newLimiter(ctx context.Context, cfg *config.Config) (api.Limiter, func()) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Printf("[riskmate] rate limit: redis at %s", cfg.RedisAddr)
		return api.NewRedisLimiter(client, cfg.RateLimitRPS, cfg.RateLimitBurst), func() { _ = client.Close() }
	}
	rl := api.NewGlobalRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rl.Run(ctx)
	return rl, func() {}
}
