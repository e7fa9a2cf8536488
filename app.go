package main

import (
	"context"
	"log"
	"time"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/services"
	"task-tracker/backend/internal/worker"
)

// app holds every component of one process. Nothing here is global; tests
// build their own.
type app struct {
	cfg   *config.Config
	pool  *database.DatabasePool
	store *repositories.Store

	tokens *repositories.TokenRepository

	redis *cache.RedisCache
	cache *cache.MultiLevelCache

	auth          *services.AuthServiceImpl
	register      *services.RegisterServiceImpl
	users         *services.UserServiceImpl
	tasks         *services.TaskServiceImpl
	shares        *services.ShareServiceImpl
	comments      *services.CommentServiceImpl
	notifications *services.NotificationServiceImpl

	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker
	limiter *middleware.RateLimiter
}

func openPool(cfg *config.Config) (*database.DatabasePool, error) {
	return database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        database.ParseLogLevel(cfg.Database.LogLevel),
	})
}

func openRedis(cfg *config.Config) *cache.RedisCache {
	return cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		KeyPrefix:    cfg.Cache.KeyPrefix,
	})
}

// newApp wires the services over pool. redisCache may be nil, in which case
// the access cache (if enabled) is in-process only and no worker can run.
func newApp(cfg *config.Config, pool *database.DatabasePool, redisCache *cache.RedisCache) (*app, error) {
	store, err := repositories.NewStore(pool.DB, cfg.Database.StoreTimeout)
	if err != nil {
		return nil, err
	}

	userRepo := repositories.NewUserRepository(store)
	tokenRepo := repositories.NewTokenRepository(store)
	taskRepo := repositories.NewTaskRepository(store)
	shareRepo := repositories.NewShareRepository(store)
	commentRepo := repositories.NewCommentRepository(store)
	notificationRepo := repositories.NewNotificationRepository(store)

	a := &app{
		cfg:     cfg,
		pool:    pool,
		store:   store,
		tokens:  tokenRepo,
		redis:   redisCache,
		metrics: monitoring.NewMetrics(),
		health:  monitoring.NewHealthChecker(),
	}

	var source services.AccessSource = services.NewStoreAccessSource(taskRepo, shareRepo)
	if cfg.Cache.Enabled {
		a.cache = cache.NewMultiLevelCache(redisCache, cfg.Cache.L1TTL)
		source = services.NewCachedAccessSource(source, a.cache, cfg.Cache.TTL)
	}

	a.auth = services.NewAuthService(userRepo, tokenRepo, services.AuthOptions{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	a.register = services.NewRegisterService(userRepo, cfg.Auth.BCryptCost)
	a.users = services.NewUserService(userRepo)
	a.tasks = services.NewTaskService(taskRepo, source)
	a.shares = services.NewShareService(shareRepo, userRepo, source)
	a.comments = services.NewCommentService(commentRepo, source)
	a.notifications = services.NewNotificationService(taskRepo, notificationRepo, cfg.Notify.Horizon, cfg.Notify.MaxHorizon)

	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
	}

	a.health.Register("database", store.Ping)
	a.metrics.AddSource("database", pool.Stats)
	if a.cache != nil {
		a.health.RegisterOptional("cache", a.cache.Health)
		a.metrics.AddSource("cache", a.cache.Stats)
	}

	return a, nil
}

// runBackground starts the periodic jobs and returns once ctx is done and
// the worker has drained.
func (a *app) runBackground(ctx context.Context) {
	if a.cache != nil {
		go a.cache.Sweep(ctx, time.Minute)
	}
	if a.limiter != nil {
		go a.limiter.Run(ctx, a.cfg.RateLimit.CleanupInterval)
	}

	if a.redis == nil || a.cfg.Worker.Concurrency <= 0 {
		log.Println("background worker disabled")
		<-ctx.Done()
		return
	}

	client := a.redis.Client()
	w := worker.NewWorker(worker.WorkerConfig{
		RedisClient:  client,
		PollInterval: a.cfg.Worker.PollInterval,
		Queues:       a.cfg.Worker.Queues,
	})
	w.RegisterHandler(worker.JobTypeDueSoonSweep, worker.DueSoonSweepHandler(a.notifications))
	w.RegisterHandler(worker.JobTypeTokenCleanup, worker.TokenCleanupHandler(a.tokens))

	queue := worker.NewJobQueue(client, a.cfg.Worker.MaxTries)
	sweep := worker.NewScheduler(queue, "due-soon", worker.JobTypeDueSoonSweep,
		map[string]interface{}{"horizon": a.cfg.Notify.Horizon.String()}, a.cfg.Notify.SweepInterval)
	purge := worker.NewScheduler(queue, "tokens", worker.JobTypeTokenCleanup, nil, time.Hour)

	w.Start(ctx, a.cfg.Worker.Concurrency)
	go sweep.Run(ctx)
	go purge.Run(ctx)

	<-ctx.Done()
	w.Stop()
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Printf("cache close: %v", err)
		}
	} else if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
	if err := a.pool.Close(); err != nil {
		log.Printf("database close: %v", err)
	}
}
