package container

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/config"
	infraCache "nwitter-backend/internal/infrastructure/cache"
	"nwitter-backend/internal/infrastructure/database"
	"nwitter-backend/internal/infrastructure/directory"
	"nwitter-backend/internal/shared/inline"
	"nwitter-backend/pkg/cache"
	"nwitter-backend/pkg/jwt"

	// Post domain
	"nwitter-backend/internal/domains/post/editor"
	postHandler "nwitter-backend/internal/domains/post/handler"
	postRepo "nwitter-backend/internal/domains/post/repository"

	// Profile domain
	"nwitter-backend/internal/domains/profile"
	profileHandler "nwitter-backend/internal/domains/profile/handler"
	profileRepo "nwitter-backend/internal/domains/profile/repository"
	profileService "nwitter-backend/internal/domains/profile/service"

	// User domain
	"nwitter-backend/internal/domains/user"
	userHandler "nwitter-backend/internal/domains/user/handler"
	userRepo "nwitter-backend/internal/domains/user/repository"
	userService "nwitter-backend/internal/domains/user/service"
)

const startupTimeout = 30 * time.Second

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph. Everything in it is a
// singleton for the lifetime of the process.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================

	Config     *config.Config
	DB         *database.PostgresDB    // nil with the memory driver
	Redis      *infraCache.RedisClient // nil with the memory driver
	Cache      cache.Cache             // nil with the memory driver
	Directory  directory.Directory
	JWTManager *jwt.Manager
	Encoder    *inline.Encoder

	// ========================================
	// REPOSITORY LAYER
	// ========================================

	UserRepo   user.Repository
	PostRepo   postRepo.Repository
	AvatarRepo profile.AvatarRepository

	// ========================================
	// SERVICE LAYER
	// ========================================

	UserService    user.Service
	Identity       user.IdentityProvider
	ProfileService profile.Service
	EditSessions   *editor.Sessions

	// ========================================
	// HANDLER LAYER
	// ========================================

	UserHandler    *userHandler.UserHandler
	PostHandler    *postHandler.PostHandler
	ProfileHandler *profileHandler.ProfileHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the dependency graph in order:
// config, infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	log.Info().Msg("Initializing DI container")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return Build(cfg)
}

// Build wires the graph from an already loaded config.
func Build(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := c.initInfrastructure(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}
	if err := c.initRepositories(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}
	c.initServices()
	c.initHandlers()

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Str("env", cfg.App.Environment).
		Msg("DI container initialized")
	return c, nil
}

// ========================================
// STEP 1: INFRASTRUCTURE
// ========================================

func (c *Container) initInfrastructure(ctx context.Context) error {
	cfg := c.Config

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	c.Encoder = inline.NewEncoder(cfg.Media.MaxImageBytes)

	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn().Msg("Using in-memory storage; data does not survive a restart")
		c.Directory = directory.NewMemoryDirectory()
		return nil
	}

	// PostgreSQL
	dbConfig := cfg.Database
	c.DB = database.NewPostgresDB(&dbConfig)
	if err := c.DB.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Redis
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client, "nwitter:")

	// Document directory
	pgDir := directory.NewPostgresDirectory(c.DB.Pool, c.Redis.Client)
	if err := pgDir.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare documents schema: %w", err)
	}
	c.Directory = pgDir

	return nil
}

// ========================================
// STEP 2: REPOSITORIES
// ========================================

func (c *Container) initRepositories(ctx context.Context) error {
	if c.DB != nil {
		if err := userRepo.EnsureSchema(ctx, c.DB.Pool); err != nil {
			return fmt.Errorf("failed to prepare users schema: %w", err)
		}
		c.UserRepo = userRepo.NewPostgresRepository(c.DB.Pool)
	} else {
		c.UserRepo = userRepo.NewMemoryRepository()
	}

	c.PostRepo = postRepo.NewDirectoryRepository(c.Directory, c.Config.Feed.Limit)
	c.AvatarRepo = profileRepo.NewAvatarRepository(c.Directory, c.Cache)
	return nil
}

// ========================================
// STEP 3: SERVICES
// ========================================

func (c *Container) initServices() {
	c.UserService = userService.NewUserService(c.UserRepo, c.JWTManager)
	c.Identity = userService.NewIdentityProvider(c.UserRepo)
	c.EditSessions = editor.NewSessions(c.PostRepo, c.Encoder, c.Config.Editor.SessionTTL)
	c.ProfileService = profileService.NewProfileService(c.Identity, c.AvatarRepo, c.PostRepo, c.Encoder)
}

// ========================================
// STEP 4: HANDLERS
// ========================================

func (c *Container) initHandlers() {
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.PostHandler = postHandler.NewPostHandler(
		c.PostRepo,
		c.EditSessions,
		c.Identity,
		c.Encoder,
		postHandler.StreamConfig{
			PingInterval: c.Config.Stream.PingInterval,
			WriteTimeout: c.Config.Stream.WriteTimeout,
		},
	)
	c.ProfileHandler = profileHandler.NewProfileHandler(c.ProfileService)
}

// ========================================
// HEALTH / CLEANUP
// ========================================

// HealthCheck pings the backing stores, if any.
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"storage": c.Config.Storage.Driver}

	if c.DB != nil {
		status["database"] = "ok"
		if err := c.DB.HealthCheck(ctx); err != nil {
			status["database"] = err.Error()
		}
	}
	if c.Redis != nil {
		status["redis"] = "ok"
		if err := c.Redis.HealthCheck(ctx); err != nil {
			status["redis"] = err.Error()
		}
	}
	return status
}

// Cleanup releases resources on shutdown. Safe on a partially built container.
func (c *Container) Cleanup() {
	log.Info().Msg("Cleaning up container resources")

	if c.EditSessions != nil {
		c.EditSessions.Stop()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis")
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	log.Info().Msg("Container cleanup completed")
}
