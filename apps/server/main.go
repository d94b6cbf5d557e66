package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v75/github"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mwestphal/quill/apps/server/internal/agecalc"
	"github.com/mwestphal/quill/apps/server/internal/config"
	"github.com/mwestphal/quill/apps/server/internal/handler"
	"github.com/mwestphal/quill/apps/server/internal/newswire"
	"github.com/mwestphal/quill/apps/server/internal/ollama"
	githubplatform "github.com/mwestphal/quill/apps/server/internal/platform/github"
	"github.com/mwestphal/quill/apps/server/internal/platform/logger"
	"github.com/mwestphal/quill/apps/server/internal/platform/telemetry"
	"github.com/mwestphal/quill/apps/server/internal/platform/validation"
	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/apps/server/internal/repocontext"
	"github.com/mwestphal/quill/apps/server/internal/summarize"
	"github.com/mwestphal/quill/schemas"
)

func main() {
	log := logger.New()

	// --- Observability ---

	// Default the service name before any OTel init.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		os.Setenv("OTEL_SERVICE_NAME", "quill-server") //nolint:errcheck
	}

	otelEnabled := os.Getenv("OTEL_ENABLED") == "true"
	ctx := context.Background()
	tel, err := telemetry.New(ctx, otelEnabled)
	if err != nil {
		log.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Configuration ---

	cfg, err := config.Load(os.Getenv("QUILL_CONFIG"))
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	// --- Plugins ---

	reg := plugin.NewRegistry()

	if cfg.RepoContext.Repo != "" {
		filter, err := buildRepoContextFilter(cfg, log)
		if err != nil {
			log.Error("repo context filter init failed", "error", err)
			os.Exit(1) //nolint:gocritic // telemetry flush is best-effort at startup
		}
		reg.AddFilter(filter)
	} else {
		log.Info("repo context filter disabled: no repository configured")
	}

	reg.AddFilter(summarize.NewFilter(summarize.Options{
		Prefix:    cfg.Summarizer.Prefix,
		Keyword:   cfg.Summarizer.Keyword,
		PastTurns: cfg.Summarizer.PastTurns,
	}, log))

	if len(cfg.Newswire.Feeds) > 0 {
		reg.AddFilter(newswire.NewFilter(newswire.Options{
			Feeds:       cfg.Newswire.Feeds,
			CacheTTL:    time.Duration(cfg.Newswire.CacheTTLSeconds) * time.Second,
			MaxArticles: cfg.Newswire.MaxArticles,
			MaxAge:      time.Duration(cfg.Newswire.MaxAgeHours) * time.Hour,
		}, log))
	} else {
		log.Info("newswire filter disabled: no feeds configured")
	}

	reg.AddAction(ollama.NewUnloader(cfg.Ollama.Hosts, log))
	reg.AddAction(agecalc.NewAction(log))

	// --- HTTP ---

	router := gin.New()

	validator, err := validation.New(schemas.OpenAPISpec)
	if err != nil {
		log.Error("openapi validation middleware init failed", "error", err)
		os.Exit(1)
	}

	router.Use(gin.Recovery(), otelgin.Middleware("quill-server"), validator)
	handler.RegisterRoutes(router, reg, log)

	log.Info("starting quill", "port", cfg.Server.Port, "filters", reg.FilterIDs(), "actions", reg.ActionIDs())
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// buildRepoContextFilter wires the GitHub client, exclusion rules, fetcher
// and snapshot store behind the repo context filter.
func buildRepoContextFilter(cfg config.Config, log *slog.Logger) (*repocontext.Filter, error) {
	owner, repo, ok := strings.Cut(cfg.RepoContext.Repo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("repo %q: want owner/name", cfg.RepoContext.Repo)
	}
	ref := repocontext.RepositoryRef{Owner: owner, Repo: repo, Branch: cfg.RepoContext.Branch}

	var gh *github.Client
	var err error
	if cfg.GitHub.AppID != 0 {
		gh, err = githubplatform.NewAppClient(cfg.GitHub.AppID, cfg.GitHub.InstallationID, cfg.GitHub.PrivateKeyPath, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github app client: %w", err)
		}
	} else {
		gh = githubplatform.NewTokenClient(cfg.GitHub.Token, cfg.GitHub.BaseURL)
	}

	rules := repocontext.NewRules(cfg.RepoContext.ExcludedDirs, cfg.RepoContext.ExcludedExtensions, cfg.RepoContext.MaxFileSize)
	fetcher := repocontext.NewFetcher(gh, rules, cfg.RepoContext.Workers, log)

	var store repocontext.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		store = repocontext.NewRedisStore(rdb, time.Duration(cfg.Redis.ExpirySeconds)*time.Second)
		log.Info("snapshot store: redis", "addr", cfg.Redis.Addr)
	} else {
		store = repocontext.NewMemoryStore()
		log.Info("snapshot store: in-memory")
	}

	return repocontext.NewFilter(repocontext.Options{
		Ref:             ref,
		TTL:             cfg.RepoContext.CacheTTL(),
		MaxContextChars: cfg.RepoContext.MaxContextChars,
	}, fetcher, store, log), nil
}
