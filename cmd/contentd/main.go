package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/formationhub/contentd/internal/app"
	"github.com/formationhub/contentd/internal/auth"
	"github.com/formationhub/contentd/internal/config"
	"github.com/formationhub/contentd/internal/content"
	"github.com/formationhub/contentd/internal/logging"
	"github.com/formationhub/contentd/internal/mcpserver"
	"github.com/formationhub/contentd/internal/render"
	"github.com/formationhub/contentd/internal/server"
)

var Version = "dev"

func main() {
	// Handle hash-key subcommand before config loading.
	if len(os.Args) > 1 && os.Args[1] == "hash-key" {
		if err := hashKey(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// hashKey generates a secret for a user and prints the API_KEYS entry
// and the bearer token to hand to the user.
func hashKey(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: contentd hash-key <user> <tier>")
	}
	user, tier := args[0], args[1]

	secret, err := auth.GenerateSecret()
	if err != nil {
		return err
	}

	hash, err := auth.HashSecret(secret, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "token (give to %s): %s.%s\n", user, user, secret)
	fmt.Printf("%s:%s:%s\n", user, tier, hash)

	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	logger.Info("contentd starting",
		slog.String("version", Version),
		slog.String("content_root", cfg.ContentRoot),
		slog.String("mode", cfg.DiscoveryMode),
		slog.Bool("mcp", cfg.EnableMCP),
		slog.Bool("watch", cfg.EnableWatch),
	)

	c, err := app.NewContent(cfg, logger)
	if err != nil {
		return err
	}

	keys, err := app.NewKeyStore(cfg, c.Site)
	if err != nil {
		return fmt.Errorf("parsing API keys: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := c.Discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("initial discovery: %w", err)
	}

	holder := content.NewHolder(snap)
	hub := server.NewHub(logger)

	renderer, closeCache, err := newRenderer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	var mcpHandler http.Handler
	if cfg.EnableMCP {
		if keys.Len() == 0 {
			return errors.New("ENABLE_MCP requires API_KEYS")
		}
		mcpHandler = mcpserver.NewHandler(holder, c.Site, Version)
	}

	router := server.New(server.Config{
		Holder:     holder,
		Site:       c.Site,
		Renderer:   renderer,
		Keys:       keys,
		Hub:        hub,
		MCPHandler: mcpHandler,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(gctx, cfg.ListenAddr, router, logger)
	})

	if cfg.EnableWatch {
		g.Go(func() error {
			err := content.Watch(gctx, cfg.ContentRoot, content.DefaultDebounce, logger, func(ctx context.Context) {
				app.Rediscover(ctx, c.Discoverer, holder, hub.Broadcast, logger)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// newRenderer builds the markdown renderer, backed by Redis when
// REDIS_ADDR is set. The returned func releases the cache connection.
func newRenderer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*render.Renderer, func(), error) {
	if cfg.RedisAddr == "" {
		return render.New(nil, logger), func() {}, nil
	}

	client, err := render.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting render cache: %w", err)
	}
	logger.Info("render cache enabled", slog.String("addr", cfg.RedisAddr))

	cache := render.NewRedisCache(client, cfg.RenderCacheTTL, logger)

	return render.New(cache, logger), func() { client.Close() }, nil
}

func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting HTTP server", slog.String("listen", addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}
