// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "lattice/docs" // swagger docs
	"lattice/internal/bootstrap"
	"lattice/internal/cache"
	"lattice/internal/config"
	"lattice/internal/featureflags"
	"lattice/internal/middleware"
	"lattice/internal/models"
	"lattice/internal/notifications"
	"lattice/internal/repository"
	"lattice/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *middleware.TokenManager
	limiter        *middleware.RateLimiter
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	feedService    *service.FeedService
	privacyService *service.PrivacyService
}

// Per-action quotas. Auth rules fail closed.
var (
	registerRule      = middleware.Rule{Name: "register", Limit: 3, Window: 10 * time.Minute, Policy: middleware.FailClosed}
	loginRule         = middleware.Rule{Name: "login", Limit: 10, Window: 5 * time.Minute, Policy: middleware.FailClosed}
	createPostRule    = middleware.Rule{Name: "create_post", Limit: 10, Window: time.Minute}
	createCommentRule = middleware.Rule{Name: "create_comment", Limit: 20, Window: time.Minute}
	followRule        = middleware.Rule{Name: "follow", Limit: 30, Window: 5 * time.Minute}
)

// Repositories groups the stores the services are built on.
type Repositories struct {
	Users    repository.UserRepository
	Posts    repository.PostRepository
	Comments repository.CommentRepository
	Follows  repository.FollowRepository
	Feed     repository.FeedRepository
}

// NewRepositories returns the GORM-backed repositories for db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    repository.NewUserRepository(db),
		Posts:    repository.NewPostRepository(db),
		Comments: repository.NewCommentRepository(db),
		Follows:  repository.NewFollowRepository(db),
		Feed:     repository.NewFeedRepository(db),
	}
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemoData})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the server then runs without cache, rate limits and notifications.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	return newServer(cfg, db, redisClient, NewRepositories(db)), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, repos Repositories) *Server {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("lattice-api"),
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL()),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	// Services take the cache.Store interface; a nil store means no caching.
	var store cache.Store
	if redisClient != nil {
		store = cache.NewRedisStore(redisClient, cfg.CacheOpTimeout())
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}

	var followNotifier service.FollowNotifier
	if s.notifier != nil {
		followNotifier = s.notifier
	}

	s.privacyService = service.NewPrivacyService(repos.Users, repos.Follows, store, cacheTTLs(cfg)).
		WithCacheGate(s.featureFlags.Gate(featureflags.PrivacyCache, true))
	s.authService = service.NewAuthService(repos.Users, s.tokens)
	s.userService = service.NewUserService(repos.Users, store)
	s.postService = service.NewPostService(repos.Posts, repos.Users, s.privacyService)
	s.commentService = service.NewCommentService(repos.Comments, repos.Posts, s.privacyService)
	s.followService = service.NewFollowService(repos.Follows, repos.Users, store, followNotifier)
	s.feedService = service.NewFeedService(repos.Feed, store, cacheTTLs(cfg).Feed).
		WithCacheGate(s.featureFlags.Gate(featureflags.FeedCache, true))

	return s
}

func cacheTTLs(cfg *config.Config) cache.TTLs {
	ttls := cache.DefaultTTLs()
	if cfg.CachePrivacyTTLSeconds > 0 {
		ttls.Privacy = time.Duration(cfg.CachePrivacyTTLSeconds) * time.Second
	}
	if cfg.CacheFollowTTLSeconds > 0 {
		ttls.Follow = time.Duration(cfg.CacheFollowTTLSeconds) * time.Second
	}
	if cfg.CacheFeedTTLSeconds > 0 {
		ttls.Feed = time.Duration(cfg.CacheFeedTTLSeconds) * time.Second
	}
	return ttls
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep their headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(middleware.RequestTimeout(s.config.StatementTimeout(), "/api/ws"))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Lattice Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/register", s.limiter.Handler(registerRule), s.Register)
	auth.Post("/login", s.limiter.Handler(loginRule), s.Login)

	// Must precede the protected group: its header-only auth refuses query tokens.
	api.Get("/ws", s.tokens.WebSocketAuthRequired(), s.WebsocketHandler())

	protected := api.Group("", s.tokens.AuthRequired())

	protected.Get("/feed", s.GetFeed)
	protected.Get("/feature-flags", s.GetFeatureFlags)

	posts := protected.Group("/posts")
	posts.Post("/", s.limiter.Handler(createPostRule), s.CreatePost)
	// Specific /:postId/:resource routes before generic /:postId
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", s.limiter.Handler(createCommentRule), s.CreateComment)
	posts.Get("/:postId", s.GetPost)
	posts.Patch("/:postId", s.UpdatePost)
	posts.Delete("/:postId", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Get("/:commentId/replies", s.GetReplies)
	comments.Patch("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Patch("/me", s.UpdateMyProfile)
	users.Put("/me/privacy", s.SetMyPrivacy)
	users.Get("/:userId/posts", s.GetUserPosts)
	users.Get("/:userId", s.GetUserProfile)

	follows := protected.Group("/follows")
	follows.Get("/following", s.GetFollowing)
	follows.Get("/followers", s.GetFollowers)
	follows.Get("/requests", s.GetFollowRequests)
	follows.Get("/status/:userId", s.GetFollowStatus)
	follows.Post("/requests/:followerId/accept", s.AcceptFollowRequest)
	follows.Post("/requests/:followerId/reject", s.RejectFollowRequest)
	follows.Delete("/followers/:followerId", s.RemoveFollower)
	// Generic /:followeeId routes must be last
	follows.Post("/:followeeId", s.limiter.Handler(followRule), s.Follow)
	follows.Delete("/:followeeId", s.Unfollow)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	// The cache is optional; only a broken database fails readiness.
	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber app with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Lattice API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the hub's subscriber.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
