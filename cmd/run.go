package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/assessd/internal/assessment"
	"github.com/abhisek/assessd/internal/auth"
	"github.com/abhisek/assessd/internal/config"
	"github.com/abhisek/assessd/internal/directory"
	"github.com/abhisek/assessd/internal/feedback"
	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quizgen"
	"github.com/abhisek/assessd/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return runServe(cmd.Context(), cfg)
	},
}

// runServe opens the store, builds dependencies, and serves until SIGINT
// or SIGTERM.
func runServe(ctx context.Context, cfg config.Config) error {
	log := cfg.NewLogger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	provider := buildProvider(ctx, cfg.LLM, st.Repos().Events, log)

	var dir directory.Directory = st.Repos().Directory
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, directory cache will fall through", slog.String("addr", cfg.Redis.Addr), slog.Any("error", err))
		}
		dir = directory.NewCached(client, dir, cfg.Redis.TTL, log)
	}

	svc := assessment.NewService(st, dir,
		quizgen.New(provider, cfg.QuizGen),
		feedback.NewGenerator(llm.WithRetry(provider, cfg.LLM.Retry), cfg.Feedback, log),
		log)
	authSvc := auth.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: server.New(svc, authSvc, st, server.Options{
			CORSOrigins:    cfg.CORS.Origins,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", slog.String("addr", cfg.HTTP.Addr), slog.String("provider", provider.ModelID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildProvider returns the configured provider, or one that always
// reports unavailable when credentials are missing.
func buildProvider(ctx context.Context, cfg llm.Config, events llm.EventRecorder, log *slog.Logger) llm.Provider {
	if err := cfg.Validate(); err != nil {
		log.Warn("llm provider not configured, quiz generation unavailable", slog.Any("error", err))
		return llm.Unavailable{Reason: err}
	}
	provider, err := llm.NewProvider(ctx, cfg, events, log)
	if err != nil {
		log.Warn("llm provider init failed", slog.Any("error", err))
		return llm.Unavailable{Reason: err}
	}
	return provider
}
