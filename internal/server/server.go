// Package server contains the HTTP handlers and wiring for the Warbler web app.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"warbler/internal/bootstrap"
	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	sessionCookieName = "warbler_session"
	csrfCookieName    = "warbler_csrf"
	csrfFormField     = "_csrf"
	limiterKeyPrefix  = "limiter:"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config   *config.Config
	db       *gorm.DB
	redis    *redis.Client
	app      *fiber.App
	metrics  *middleware.Metrics
	sessions *session.Store

	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	followRepo  repository.FollowRepository
	likeRepo    repository.LikeRepository

	authService    *service.AuthService
	userService    *service.UserService
	messageService *service.MessageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	metrics := middleware.InitMetrics("warbler")
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ApplySchema: true, Metrics: metrics})
	if err != nil {
		return nil, err
	}

	return newServer(cfg, db, redisClient, metrics), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
// A nil redisClient keeps sessions in memory and disables caching.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return newServer(cfg, db, redisClient, middleware.InitMetrics("warbler")), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, metrics *middleware.Metrics) *Server {
	s := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		metrics:     metrics,
		userRepo:    repository.NewUserRepository(db, redisClient),
		messageRepo: repository.NewMessageRepository(db),
		followRepo:  repository.NewFollowRepository(db),
		likeRepo:    repository.NewLikeRepository(db),
	}
	s.authService = service.NewAuthService(s.userRepo, cfg.BcryptCost)
	s.userService = service.NewUserService(s.userRepo, s.followRepo, s.messageRepo, s.likeRepo)
	s.messageService = service.NewMessageService(s.messageRepo, s.likeRepo, s.followRepo)
	s.sessions = s.newSessionStore()
	return s
}

func (s *Server) newSessionStore() *session.Store {
	cfg := session.Config{
		Expiration:     time.Duration(s.config.SessionTTLHours) * time.Hour,
		KeyLookup:      "cookie:" + sessionCookieName,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		CookieSecure:   s.config.IsProduction(),
		KeyGenerator:   uuid.NewString,
	}
	// Without Redis the store falls back to fiber's in-memory storage.
	if s.redis != nil {
		cfg.Storage = cache.NewSessionStorage(s.redis)
	}
	store := session.New(cfg)
	store.RegisterType([]Flash{})
	return store
}

// cookieKey derives the AES-256 key encryptcookie expects from SESSION_SECRET.
func cookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.TracingMiddleware())

	// Propagate request and trace ids into the request context
	app.Use(middleware.ContextMiddleware())

	if s.metrics != nil {
		app.Use(middleware.MetricsMiddleware(s.metrics))
	}

	// Avatars and headers may live on other origins
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   views.Static(),
		MaxAge: 3600,
	}))

	limiterCfg := limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}
	if s.redis != nil {
		limiterCfg.Storage = cache.NewPrefixedStorage(s.redis, limiterKeyPrefix)
	}
	app.Use(limiter.New(limiterCfg))

	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: cookieKey(s.config.SessionSecret),
	}))

	// Resolves curr_user once per request
	app.Use(s.SessionMiddleware())

	if s.config.CSRFEnabled {
		csrfCfg := csrf.Config{
			KeyLookup:      "form:" + csrfFormField,
			CookieName:     csrfCookieName,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
			CookieSecure:   s.config.IsProduction(),
			CookieHTTPOnly: true,
			Expiration:     time.Duration(s.config.SessionTTLHours) * time.Hour,
			ContextKey:     csrfContextKey,
			KeyGenerator:   uuid.NewString,
		}
		if s.redis != nil {
			csrfCfg.Storage = cache.NewPrefixedStorage(s.redis, cache.CSRFKeyPrefix)
		}
		app.Use(csrf.New(csrfCfg))
	}
}

var (
	signupLimit = middleware.AttemptLimit{Name: "signup", Max: 5, Window: time.Hour}
	loginLimit  = middleware.AttemptLimit{Name: "login", Max: 10, Window: 15 * time.Minute, KeyFields: []string{"username"}}
)

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.metrics != nil {
		app.Get("/metrics", s.metrics.Handler())
	}

	app.Get("/", s.Home)

	app.Get("/signup", s.SignupPage)
	app.Post("/signup", middleware.LimitAttempts(s.redis, s.config.Env, signupLimit), s.Signup)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.LimitAttempts(s.redis, s.config.Env, loginLimit), s.Login)
	app.Get("/logout", s.Logout)

	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	users.Get("/profile", s.requireLogin, s.EditProfilePage)
	users.Post("/profile", s.requireLogin, s.UpdateProfile)
	users.Post("/delete", s.requireLogin, s.DeleteAccount)
	users.Post("/follow/:userId<int>", s.requireLogin, s.Follow)
	users.Post("/stop-following/:userId<int>", s.requireLogin, s.StopFollowing)
	users.Get("/:userId<int>", s.ShowUser)
	users.Get("/:userId<int>/following", s.ShowFollowing)
	users.Get("/:userId<int>/followers", s.ShowFollowers)
	users.Get("/:userId<int>/likes", s.requireLogin, s.ShowLikes)

	messages := app.Group("/messages")
	messages.Get("/new", s.requireLogin, s.NewMessagePage)
	messages.Post("/new", s.requireLogin, s.CreateMessage)
	messages.Get("/:messageId<int>", s.ShowMessage)
	messages.Post("/:messageId<int>/delete", s.requireLogin, s.DeleteMessage)
	messages.Post("/:messageId<int>/like", s.requireLogin, s.ToggleLike)
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
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: sessions fall back to memory without it
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": "warbler",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber application with views, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Warbler",
		Views:        views.NewEngine(s.config.Env == "development"),
		ViewsLayout:  views.Layout,
		ErrorHandler: s.handleError,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start builds the app and blocks serving it.
func (s *Server) Start() error {
	s.app = s.NewApp()

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing sql DB", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
