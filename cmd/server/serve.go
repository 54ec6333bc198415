package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weatheragent/internal/config"
	"weatheragent/internal/handler"
	"weatheragent/internal/logger"
	"weatheragent/internal/metrics"
	"weatheragent/internal/scheduler"
	"weatheragent/internal/service"
	"weatheragent/internal/weather"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, repo, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	log.Info("starting "+serviceName,
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	if err := cfg.RequireServing(); err != nil {
		return err
	}
	if err := repo.Migrate(ctx); err != nil {
		return err
	}

	llm := service.NewOpenAIClient(cfg.LLM, log)
	log.Info("LLM client initialized",
		zap.String("api_base", cfg.LLM.APIBase),
		zap.String("chat_model", cfg.LLM.ChatModel),
		zap.Float64("temperature", cfg.LLM.ChatTemperature),
		zap.Int("max_tokens", cfg.LLM.ChatMaxTokens))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := llm.Ping(pingCtx); err != nil {
		log.Warn("LLM endpoint not reachable at startup", zap.Error(err))
	}
	cancel()

	agent := service.NewWeatherAgent(llm, weather.NewClient(cfg.Weather, log), repo, service.AgentOptions{
		HistoryWindow:      cfg.Agent.HistoryWindow,
		DomainGuardEnabled: cfg.Agent.DomainGuardEnabled,
		Units:              cfg.Agent.DefaultUnits,
		QueryTimeout:       cfg.Agent.QueryTimeout,
	}, log)

	sweeper := scheduler.New(agent.Memory(), cfg.Agent.SessionMemoryTTL, cfg.Agent.SessionSweepEvery, log)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sweeper.Stop()

	metrics.Register()
	gin.SetMode(cfg.Server.GinMode)
	router := newRouter(cfg, log, agent, repo)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newRouter(cfg *config.Config, log *zap.Logger, agent handler.Agent, store handler.Pinger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.Server.AllowedOrigins)
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	corsConfig.ExposeHeaders = []string{handler.SessionHeader}
	router.Use(cors.New(corsConfig))

	health := handler.NewHealthHandler(serviceName, Version, store)
	router.GET("/", health.Welcome)
	router.GET("/health", health.Health)
	router.GET("/version", health.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	weatherHandler := handler.NewWeatherHandler(agent, cfg.Agent.HistoryWindow, cfg.Agent.MaxHistoryListLimit, log)
	weatherHandler.Register(router.Group("/api"))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
