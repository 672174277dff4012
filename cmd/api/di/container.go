package di

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pokedex-user-service/cmd/api/infrastructure"
	"pokedex-user-service/internal/adapter/cache"
	"pokedex-user-service/internal/adapter/db/postgres"
	ginhandler "pokedex-user-service/internal/adapter/gin/handler"
	"pokedex-user-service/internal/adapter/pokeapi"
	"pokedex-user-service/internal/adapter/repository/cached"
	"pokedex-user-service/internal/config"
	"pokedex-user-service/internal/usecase/user"
	redisclient "pokedex-user-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	UserUC      user.Usecase
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		return nil, err
	}

	// Repository, optionally wrapped with the record cache
	var repo user.Repository = postgres.NewUserRepoPG(db, l)
	if rdb != nil {
		userCache := cache.NewRedisUserCache(
			rdb.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		repo = cached.NewCachedUserRepository(repo, userCache, l)
	}

	lookup := pokeapi.NewClient(
		cfg.PokeAPI.BaseURL,
		time.Duration(cfg.PokeAPI.TimeoutSeconds)*time.Second,
		l,
	)

	userUC := user.New(repo, lookup, l)
	ginHandler := ginhandler.NewUserHandler(userUC, l)

	return &Container{
		Config:      cfg,
		Logger:      l,
		DB:          db,
		RedisClient: rdb,
		UserUC:      userUC,
		GinHandler:  ginHandler,
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
