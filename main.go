package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/feedback-board/internal/auth"
	"github.com/debemdeboas/feedback-board/internal/composer"
	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/draft"
	"github.com/debemdeboas/feedback-board/internal/logger"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/posts"
	"github.com/debemdeboas/feedback-board/internal/render"
	"github.com/debemdeboas/feedback-board/internal/repository"
	"github.com/debemdeboas/feedback-board/internal/routes"
	"github.com/debemdeboas/feedback-board/internal/sse"
	"github.com/debemdeboas/feedback-board/internal/storage"
)

// Composers nobody touched for this long are dropped from memory. Their
// drafts stay in the draft store.
const composerMaxIdle = time.Hour

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML or TOML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		// The logger isn't configured yet.
		os.Stderr.WriteString("Error loading .env file: " + err.Error() + "\n")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	cfg := config.AppConfig

	l := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	setLoggers(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := db.NewSQLite(cfg.Database.Path)
	if err := database.InitDB(); err != nil {
		l.Fatal().Err(err).Msgf(config.ErrInitializeDatabaseFmt, err)
	}
	defer database.Close()

	mux := http.NewServeMux()

	provider, err := newAuthProvider(cfg, database, mux)
	if err != nil {
		l.Fatal().Err(err).Str("type", cfg.Auth.Type).Msgf(config.ErrCreateProviderFmt, err)
	}

	store, err := newAttachmentStore(ctx, cfg, mux)
	if err != nil {
		l.Fatal().Err(err).Str("backend", cfg.Attachments.Backend).Msg("Failed to create attachment store")
	}

	drafts := newDraftStore(cfg, database)
	go draft.RunPruner(ctx, drafts, cfg.Drafts.MaxAge, cfg.Drafts.PruneInterval)

	repo := repository.NewDBPostRepository(database)
	clients := sse.NewClients()
	service := posts.NewService(repo, store, clients, posts.OptionsFromConfig(cfg))

	composers := composer.NewHandler(drafts, service)
	composers.Register(mux)
	go evictComposers(ctx, l, composers, cfg.Drafts.PruneInterval)

	board := &app{repo: repo, perPage: cfg.Posts.PerPage}
	board.register(mux)
	mux.Handle("GET "+routes.Events, clients)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(l, mux, provider),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	l.Info().Str("addr", server.Addr).Str("auth", cfg.Auth.Type).Str("drafts", cfg.Drafts.Store).Msg("Starting feedback board")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Fatal().Err(err).Msg("Server failed")
	}
	l.Info().Msg("Server stopped")
}

// newHandler wraps mux in the security, auth, cache and logging middleware.
func newHandler(l zerolog.Logger, mux *http.ServeMux, provider auth.AuthProvider) http.Handler {
	securedMux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" { // Ignore robots.txt
			mux.ServeHTTP(w, r)
		} else {
			secureHeaders(mux.ServeHTTP)(w, r)
		}
	})
	authMux := provider.WithHeaderAuthorization()(securedMux)
	return withRequestLogger(l, cacheIt(authMux.ServeHTTP))
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l.With().Str("component", "config").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
	draft.SetLogger(l.With().Str("component", "draft").Logger())
	composer.SetLogger(l.With().Str("component", "composer").Logger())
	posts.SetLogger(l.With().Str("component", "posts").Logger())
	repository.SetLogger(l.With().Str("component", "repository").Logger())
	storage.SetLogger(l.With().Str("component", "storage").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
	sse.SetLogger(l.With().Str("component", "sse").Logger())
}

func newAuthProvider(cfg *config.Config, database db.DB, mux *http.ServeMux) (auth.AuthProvider, error) {
	switch cfg.Auth.Type {
	case "clerk":
		provider := auth.NewClerkAuthProvider(cfg.Auth.ClerkKey, database)
		auth.RegisterClerkAuthRoutes(mux, provider)
		return provider, nil
	default:
		provider, err := auth.NewEd25519AuthProvider(
			cfg.Auth.Ed25519PublicKey,
			cfg.Auth.HeaderName,
			model.UserID(cfg.Auth.AdminUserID),
		)
		if err != nil {
			return nil, err
		}
		auth.RegisterEd25519AuthRoutes(mux, provider)
		return provider, nil
	}
}

func newAttachmentStore(ctx context.Context, cfg *config.Config, mux *http.ServeMux) (storage.AttachmentStore, error) {
	switch cfg.Attachments.Backend {
	case "s3":
		s3cfg := cfg.Attachments.S3
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          s3cfg.Bucket,
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			PublicURL:       s3cfg.PublicURL,
			AccessKeyID:     s3cfg.AccessKeyID,
			AccessKeySecret: s3cfg.AccessKeySecret,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store := storage.NewFSStore(cfg.Attachments.Dir, routes.Attachments)
		mux.Handle("GET "+routes.Attachments, http.StripPrefix(routes.Attachments, http.FileServer(http.Dir(store.BaseDir()))))
		return store, nil
	}
}

func newDraftStore(cfg *config.Config, database db.DB) draft.Store {
	if cfg.Drafts.Store == "memory" {
		return draft.NewMemoryStore(cfg.Drafts.MaxAge)
	}
	return draft.NewSQLiteStore(database, cfg.Drafts.MaxAge)
}

func evictComposers(ctx context.Context, l zerolog.Logger, h *composer.Handler, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Evict(composerMaxIdle); n > 0 {
				l.Debug().Int("evicted", n).Msg("Evicted idle composers")
			}
		}
	}
}
