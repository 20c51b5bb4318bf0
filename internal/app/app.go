package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/safetalk/safetalk-server/internal/auth"
	"github.com/safetalk/safetalk-server/internal/config"
	"github.com/safetalk/safetalk-server/internal/core"
	"github.com/safetalk/safetalk-server/internal/moderation"
	"github.com/safetalk/safetalk-server/internal/service/chat"
	"github.com/safetalk/safetalk-server/internal/service/comments"
	"github.com/safetalk/safetalk-server/internal/store"
	"github.com/safetalk/safetalk-server/internal/store/sqlite"
	transporthttp "github.com/safetalk/safetalk-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	lexicon := moderation.NewLexicon(cfg.FlaggedTerms)
	gate := moderation.NewGate(newClassifier(cfg, lexicon, logger), lexicon, moderation.GateConfig{
		Threshold: cfg.MessageThreshold,
		Timeout:   cfg.ClassifierTimeout,
		Workers:   cfg.ClassifierWorkers,
	}, logger)
	ledger := moderation.NewLedger(st, st, cfg.MaxBullyingCount)

	opts := core.Options{
		Store:        st,
		Moderator:    gate,
		Auth:         authService,
		RequireToken: cfg.JWTRequired,
		Logger:       logger,
	}
	if cfg.EnforceAbuseGate {
		opts.Access = ledger
	}
	hub := core.NewHub(opts)

	chatService := chat.New(st, hub.Presence(), ledger, cfg.HistoryPageLimit)
	commentService := comments.New(st, ledger, gate, cfg.CommentThreshold, logger)
	server := transporthttp.NewServer(hub, authService, chatService, commentService, cfg, logger)

	logger.Info().
		Int("flagged_terms", lexicon.Len()).
		Int("max_bullying_count", cfg.MaxBullyingCount).
		Bool("abuse_gate", cfg.EnforceAbuseGate).
		Bool("jwt_required", cfg.JWTRequired).
		Msg("moderation configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

func newClassifier(cfg *config.Config, lexicon *moderation.Lexicon, logger *zerolog.Logger) moderation.Classifier {
	if cfg.ClassifierURL == "" {
		logger.Info().Msg("using lexical classifier")
		return moderation.NewLexicalClassifier(lexicon)
	}
	logger.Info().Str("url", cfg.ClassifierURL).Msg("using remote classifier")
	return moderation.NewRemoteClassifier(cfg.ClassifierURL, &stdhttp.Client{Timeout: cfg.ClassifierTimeout})
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
