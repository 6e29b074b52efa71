package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"portfolio-backend/internal/analyses"
	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/consolidation"
	"portfolio-backend/internal/features"
	"portfolio-backend/internal/features/extract"
	"portfolio-backend/internal/features/taxonomy"
	"portfolio-backend/internal/overlaps"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/events"
	"portfolio-backend/internal/shared/lock"
	"portfolio-backend/internal/shared/server"
	"portfolio-backend/internal/shared/storage/db"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/software"
)

const (
	staleJobMessage = "Analysis interrupted: no progress recorded within the job lease"
	// defaultStaleAfter applies when no job lock TTL is configured.
	defaultStaleAfter = 30 * time.Minute
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Redis     *redis.Client
	Publisher events.Publisher
	Taxonomy  *taxonomy.Taxonomy

	Software        software.Reader
	Companies       companies.Resolver
	Tags            features.TagRepo
	Categories      features.CategoryStore
	Recommendations consolidation.Repo
	AnalysesRepo    analyses.Repo

	FeaturesService *features.Service
	AnalysesService *analyses.Service

	FeaturesHandler       *features.Handler
	AnalysisHandler       *analyses.Handler
	RecommendationHandler *consolidation.Handler
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Taxonomy: taxonomy.Default(),
	}

	locker, err := buildLocker(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := buildPublisher(app); err != nil {
		app.Close()
		return nil, err
	}
	buildRepos(app)
	buildServices(app, locker)

	if err := taxonomy.Seed(ctx, app.Taxonomy, app.Categories); err != nil {
		app.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	if n, err := app.AnalysesRepo.FailStale(ctx, staleJobMessage, staleAfter(cfg)); err != nil {
		telemetry.Warn("bootstrap.fail_stale_jobs", map[string]any{"error": err})
	} else if n > 0 {
		telemetry.Warn("bootstrap.stale_jobs_failed", map[string]any{"count": n})
	}

	app.Router = server.NewRouter(cfg,
		app.FeaturesHandler,
		app.AnalysisHandler,
		app.RecommendationHandler,
	)
	return app, nil
}

// Close waits for running analyses and releases external connections.
func (a *App) Close() {
	if a.AnalysesService != nil {
		a.AnalysesService.Wait()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			telemetry.Warn("bootstrap.publisher_close", map[string]any{"error": err})
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// staleAfter is how long a live job may go without a save before it counts as abandoned.
// Runs save after every item and refresh their lock lease at the same time, so a job idle
// for a full lease has no owner left.
func staleAfter(cfg config.Config) time.Duration {
	if cfg.JobLockTTL > 0 {
		return cfg.JobLockTTL
	}
	return defaultStaleAfter
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_url_empty", map[string]any{"fallback": "memory"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_connect_failed", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildLocker(ctx context.Context, app *App) (lock.Locker, error) {
	if app.Config.RedisURL == "" {
		return lock.NewLocal(), nil
	}
	client, err := lock.NewRedisClient(ctx, app.Config.RedisURL)
	if err != nil {
		if app.Config.IsDevLike() {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"fallback": "local", "error": err})
			return lock.NewLocal(), nil
		}
		return nil, err
	}
	app.Redis = client
	return lock.NewRedis(client, app.Config.JobLockTTL), nil
}

func buildPublisher(app *App) error {
	if len(app.Config.KafkaBrokers) == 0 {
		app.Publisher = events.Nop{}
		return nil
	}
	pub, err := events.NewKafkaPublisher(app.Config.KafkaBrokers, app.Config.KafkaJobTopic)
	if err != nil {
		return err
	}
	app.Publisher = pub
	return nil
}

func buildRepos(app *App) {
	if app.DB != nil {
		app.Software = &software.PGRepo{DB: app.DB}
		app.Companies = &companies.PGRepo{DB: app.DB}
		app.Tags = &features.PGTagRepo{DB: app.DB}
		app.Categories = &features.PGCategoryStore{DB: app.DB}
		app.Recommendations = &consolidation.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
		return
	}
	demoCompany, demoAssets := DemoPortfolio()
	app.Software = software.NewMemoryRepo(demoAssets...)
	app.Companies = companies.NewMemoryRepo(demoCompany)
	app.Tags = features.NewMemoryTagRepo()
	app.Categories = features.NewMemoryCategoryStore()
	app.Recommendations = consolidation.NewMemoryRepo()
	app.AnalysesRepo = analyses.NewMemoryRepo()
}

func buildServices(app *App, locker lock.Locker) {
	app.FeaturesService = &features.Service{
		Software:   app.Software,
		Companies:  app.Companies,
		Tags:       app.Tags,
		Categories: app.Categories,
		Extractor:  extract.Default(),
		Taxonomy:   app.Taxonomy,
	}
	app.AnalysesService = &analyses.Service{
		Repo:       app.AnalysesRepo,
		Companies:  app.Companies,
		Software:   app.Software,
		Features:   app.FeaturesService,
		Recs:       app.Recommendations,
		Locker:     locker,
		Publisher:  app.Publisher,
		Taxonomy:   app.Taxonomy,
		CostPolicy: overlaps.ProportionalCost{},
		ItemDelay:  app.Config.AnalysisItemDelay,
	}

	app.FeaturesHandler = features.NewHandler(app.FeaturesService)
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService)
	app.RecommendationHandler = consolidation.NewHandler(app.Companies, app.Recommendations)
}
