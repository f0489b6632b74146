package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aurorachat/internal/api"
	"aurorachat/internal/config"
	"aurorachat/internal/journal"
	"aurorachat/internal/logging"
	"aurorachat/internal/service/ai"
	"aurorachat/internal/service/relay"
	"aurorachat/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.L().Error("relay stopped", zap.Error(err))
		_ = logging.L().Sync()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		// The logger is not configured yet.
		logger, _ := logging.Setup("info", "json")
		if logger != nil {
			logger.Error("load config", zap.Error(err))
		}
		return err
	}

	logger, err := logging.Setup(cfg.BasicConfig.LogLevel, cfg.BasicConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := ai.NewProvider(ctx, cfg, nil)
	if err != nil {
		return err
	}

	rec, err := journal.New(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	svc, err := relay.NewService(provider, cfg.Replies,
		relay.WithTimeout(time.Duration(cfg.BasicConfig.UpstreamTimeoutSeconds)*time.Second),
		relay.WithJournal(rec),
		relay.WithJournalTimeout(time.Duration(cfg.Journal.TimeoutSeconds)*time.Second),
	)
	if err != nil {
		return err
	}

	var assets fs.FS = web.Static()
	if dir := cfg.BasicConfig.StaticDir; dir != "" {
		assets = os.DirFS(dir)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	api.NewHandler(svc, assets, cfg.Replies.Unreachable).RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":4321"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening",
			zap.String("addr", addr),
			zap.String("provider", provider.Name()),
			zap.String("model", provider.Model()),
			zap.String("journal", cfg.Journal.Driver),
			zap.String("system_prompt_file", cfg.SystemPromptFile),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
