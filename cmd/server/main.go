package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jw6ventures/gcalsync/internal/config"
	"github.com/jw6ventures/gcalsync/internal/eventstore"
	"github.com/jw6ventures/gcalsync/internal/httpapi"
	apierr "github.com/jw6ventures/gcalsync/internal/httpapi/errors"
	"github.com/jw6ventures/gcalsync/internal/oauthflow"
	"github.com/jw6ventures/gcalsync/internal/provider"
	"github.com/jw6ventures/gcalsync/internal/retry"
	"github.com/jw6ventures/gcalsync/internal/session"
	"github.com/jw6ventures/gcalsync/internal/store"
	"github.com/jw6ventures/gcalsync/internal/sync"
	"github.com/jw6ventures/gcalsync/internal/token"
	"github.com/jw6ventures/gcalsync/internal/vault"
	"github.com/jw6ventures/gcalsync/internal/webhook"
	"github.com/jw6ventures/gcalsync/internal/writethrough"
)

const (
	oauthStateGCInterval     = 15 * time.Minute
	stuckSyncSweepInterval   = 10 * time.Minute
	webhookExpirySweep       = 30 * time.Minute
	scheduledSyncInterval    = 5 * time.Minute
	oauthStateTTLGracePeriod = time.Hour
)

func main() {
	_ = godotenv.Load()

	log.Println("starting gcalsync server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	apierr.SetDevelopment(!cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to parse db dsn: %v", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	poolCfg.MaxConnIdleTime = cfg.DB.MaxConnIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatalf("failed to create db pool: %v", err)
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	stor := store.New(pool)

	v, err := vault.New(cfg.Session.VaultSecret)
	if err != nil {
		log.Fatalf("failed to init credential vault: %v", err)
	}

	retryExec := retry.NewExecutor(nil)

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Endpoint:     google.Endpoint,
	}
	tokens := token.New(stor.Users, v, oauthCfg, retryExec)

	sessions := session.New(cfg.Session.JWTSecret, cfg.BaseURL, cfg.Session.CookieDomain, cfg.Session.JWTLifetime)

	orchestrator := oauthflow.New(
		oauthflow.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		},
		cfg.Session.CookieSecret,
		cfg.FrontendURL,
		cfg.IsProduction(),
		stor.OAuthStates,
		stor.Users,
		tokens,
		sessions,
	)

	calendarProvider := provider.NewGoogleProvider()

	events := eventstore.New(stor.Events)
	syncEngine := sync.New(calendarProvider, tokens, events, stor.SyncCursors, retryExec)
	mediator := writethrough.New(calendarProvider, tokens, events, retryExec)
	demux := webhook.New(stor.Webhooks, syncEngine, calendarProvider, tokens)

	router := httpapi.NewRouter(httpapi.Deps{
		Config:       cfg,
		Store:        stor,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Tokens:       tokens,
		Events:       events,
		Mediator:     mediator,
		Syncer:       syncEngine,
		Webhook:      demux,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go runSweepers(ctx, stor, syncEngine, demux)

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// runSweepers drives the periodic background maintenance the spec assigns
// to "a periodic sweeper": garbage-collecting expired OAuth state nonces
// and webhook subscriptions (§5), resetting sync cursors stuck mid-run
// (§4.8), and kicking an incremental sync for users the scheduler still
// considers eligible (§4.6). Every tick is independent; a failure in one
// logs and the loop continues.
func runSweepers(ctx context.Context, stor *store.Store, syncer *sync.Engine, demux *webhook.Demultiplexer) {
	oauthStateTicker := time.NewTicker(oauthStateGCInterval)
	defer oauthStateTicker.Stop()
	stuckSyncTicker := time.NewTicker(stuckSyncSweepInterval)
	defer stuckSyncTicker.Stop()
	webhookTicker := time.NewTicker(webhookExpirySweep)
	defer webhookTicker.Stop()
	scheduledSyncTicker := time.NewTicker(scheduledSyncInterval)
	defer scheduledSyncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-oauthStateTicker.C:
			if n, err := stor.OAuthStates.GC(ctx, time.Now().Add(-oauthStateTTLGracePeriod)); err != nil {
				log.Printf("[WARN] sweeper: oauth state gc failed: %v", err)
			} else if n > 0 {
				log.Printf("[INFO] sweeper: garbage-collected %d expired oauth states", n)
			}
		case <-stuckSyncTicker.C:
			if n, err := syncer.ResetStuckSyncs(ctx, time.Hour); err != nil {
				log.Printf("[WARN] sweeper: stuck sync reset failed: %v", err)
			} else if n > 0 {
				log.Printf("[INFO] sweeper: reset %d stuck syncs", n)
			}
		case <-webhookTicker.C:
			if n, err := demux.SweepExpired(ctx, time.Now()); err != nil {
				log.Printf("[WARN] sweeper: webhook expiry sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("[INFO] sweeper: deactivated %d expired webhook subscriptions", n)
			}
		case <-scheduledSyncTicker.C:
			runScheduledSyncs(ctx, syncer)
		}
	}
}

func runScheduledSyncs(ctx context.Context, syncer *sync.Engine) {
	userIDs, err := syncer.ScheduleEligibleUsers(ctx)
	if err != nil {
		log.Printf("[WARN] sweeper: list eligible users failed: %v", err)
		return
	}
	for _, userID := range userIDs {
		if _, err := syncer.Run(ctx, userID, sync.Options{}); err != nil {
			log.Printf("[WARN] sweeper: scheduled sync failed for user=%s: %v", userID, err)
		}
	}
}
