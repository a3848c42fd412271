package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/lrblog/internal/api"
	"github.com/wuwenbin0122/lrblog/internal/auth"
	"github.com/wuwenbin0122/lrblog/internal/db"
	"github.com/wuwenbin0122/lrblog/internal/posts"
	"github.com/wuwenbin0122/lrblog/internal/session"
	"github.com/wuwenbin0122/lrblog/internal/userdata"
	"github.com/wuwenbin0122/lrblog/internal/users"
	"github.com/wuwenbin0122/lrblog/internal/utils"
	"github.com/wuwenbin0122/lrblog/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		utils.Sugar().Infof("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		utils.Sugar().Fatalf("config: failed to load: %v", err)
	}

	utils.MustNewLogger(cfg.Logging)
	defer func() { _ = utils.Logger().Sync() }()
	logger := utils.Sugar()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	userStore := users.Store(users.NewMemoryStore())
	if cfg.Mongo.Enabled {
		mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			logger.Fatalf("mongo: failed to connect: %v", err)
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				logger.Warnf("mongo: close error: %v", err)
			}
		}()

		if err := mongoStore.EnsureCollections(ctx); err != nil {
			logger.Fatalf("mongo: ensure collections: %v", err)
		}
		userStore = users.NewMongoStore(mongoStore.Users)
	} else {
		logger.Warn("mongo disabled; accounts are kept in memory")
	}

	sessionStore := session.Store(session.NewMemoryStore())
	if cfg.Redis.Addr != "" {
		redisClient, err := db.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("redis: failed to connect: %v", err)
		}
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient)
	} else {
		logger.Info("redis address empty; sessions are kept in memory")
	}

	postRepo := posts.Repository(posts.NewStaticRepository())
	if cfg.Postgres.Enabled {
		postgres, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatalf("postgres: failed to connect: %v", err)
		}
		defer postgres.Close()

		if err := postgres.Ping(ctx); err != nil {
			logger.Fatalf("postgres: ping failed: %v", err)
		}
		if err := postgres.EnsureSchema(ctx); err != nil {
			logger.Fatalf("postgres: ensure schema: %v", err)
		}

		gormDB, err := db.NewGORM(postgres)
		if err != nil {
			logger.Fatalf("postgres: open catalog: %v", err)
		}
		postRepo = posts.NewPostgresRepository(postgres.Pool, gormDB)
	} else {
		logger.Info("postgres disabled; serving sample posts")
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.Session.TTL, userStore)
	if err != nil {
		logger.Fatalf("failed to initialise auth service: %v", err)
	}

	hub := session.NewHub()
	sessions := session.NewManager(authService, sessionStore, hub, cfg.Session, logger.Named("session"))

	cache := userdata.NewCache(userdata.FetcherFunc(authService.Profile), cfg.UserCache.TTL)
	go cache.Watch(ctx, hub)

	router, err := setupRouter(authService, sessions, cache, postRepo, logger)
	if err != nil {
		logger.Fatalf("failed to set up routes: %v", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(authService *auth.Service, sessions *session.Manager, cache *userdata.Cache, repo posts.Repository, logger *zap.SugaredLogger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(api.RequestLogger(logger.Named("http")), gin.Recovery())

	api.NewHandler(authService, sessions, repo, logger.Named("api")).RegisterRoutes(router)

	pages, err := web.NewServer(authService, sessions, cache, repo, logger.Named("web"))
	if err != nil {
		return nil, err
	}
	pages.RegisterRoutes(router)

	return router, nil
}
