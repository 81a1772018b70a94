package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/tasklog/core/docs"
	httpHandlers "github.com/tasklog/core/internal/adapters/http"
	"github.com/tasklog/core/internal/adapters/notification"
	"github.com/tasklog/core/internal/adapters/repository"
	"github.com/tasklog/core/internal/application/services"
	"github.com/tasklog/core/internal/infrastructure/config"
	"github.com/tasklog/core/internal/infrastructure/database"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/infrastructure/metrics"
)

// Server represents the HTTP server
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	logger     *logger.Logger
	db         *database.DB
	redis      *redis.Client
	dispatcher *notification.Dispatcher
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: services.NewValidator()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	notifier, err := notification.New(cfg.Notification, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}
	server.dispatcher = notification.NewDispatcher(notifier, cfg.Notification.QueueSize, appLogger)

	opts := []services.Option{
		services.WithNotifier(server.dispatcher),
		services.WithTopN(cfg.Report.TopN),
	}
	if cfg.Redis.Enabled {
		server.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, services.WithCache(repository.NewRedisCacheRepository(server.redis, cfg.App.Name), cfg.Report.CacheTTL))
	}

	// Initialize repositories
	store := repository.NewStore(db)

	// Initialize services
	authService := services.NewAuthService(store.Users(), cfg.JWT, appLogger, opts...)
	userService := services.NewUserService(store.Users(), appLogger, opts...)
	taskService := services.NewTaskService(store, appLogger, opts...)
	timerService := services.NewTimerService(store, appLogger, opts...)
	reportService := services.NewReportService(store, appLogger, opts...)
	commentService := services.NewCommentService(store, appLogger, opts...)

	// Initialize handlers
	handlers := routeHandlers{
		user:    httpHandlers.NewUserHandler(userService, appLogger),
		task:    httpHandlers.NewTaskHandler(taskService, reportService, commentService, timerService, appLogger),
		timer:   httpHandlers.NewTimerHandler(timerService, reportService, appLogger),
		comment: httpHandlers.NewCommentHandler(commentService, appLogger),
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(handlers, authService)

	return server, nil
}

type routeHandlers struct {
	user    *httpHandlers.UserHandler
	task    *httpHandlers.TaskHandler
	timer   *httpHandlers.TimerHandler
	comment *httpHandlers.CommentHandler
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			log := s.logger.WithRequestID(values.RequestID)
			if values.Error != nil {
				log.WithError(values.Error).Errorw("HTTP request failed", fields...)
			} else {
				log.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware
	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: s.config.Server.RequestTimeout,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h routeHandlers, authService *services.AuthService) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 routes, all authenticated
	v1 := s.echo.Group("/api/v1", s.authMiddleware(authService))

	userGroup := v1.Group("/users")
	userGroup.GET("", h.user.ListUsers)
	userGroup.GET("/me", h.user.GetCurrentUser)

	taskGroup := v1.Group("/tasks")
	taskGroup.POST("", h.task.CreateTask)
	taskGroup.GET("/mine", h.task.MyTasks)
	taskGroup.GET("/created", h.task.CreatedTasks)
	taskGroup.GET("/completed", h.task.CompletedTasks)
	taskGroup.GET("/search", h.task.SearchTasks)
	taskGroup.GET("/top-20", h.task.TopTasks)
	taskGroup.GET("/:id", h.task.GetTask)
	taskGroup.DELETE("/:id", h.task.DeleteTask)
	taskGroup.PATCH("/:id/complete", h.task.CompleteTask)
	taskGroup.POST("/:id/assign", h.task.AssignTask)
	taskGroup.GET("/:id/comments", h.task.TaskComments)
	taskGroup.GET("/:id/time-logs", h.task.TimeLogs)

	timerGroup := v1.Group("/timer")
	timerGroup.POST("/manual", h.timer.AddManualLog)
	timerGroup.GET("/last-month", h.timer.LastMonth)
	timerGroup.POST("/:id/start", h.timer.StartTimer)
	timerGroup.POST("/:id/stop", h.timer.StopTimer)

	v1.POST("/comments", h.comment.CreateComment)
}

// setupMetrics exposes the shared collectors and records request metrics
func (s *Server) setupMetrics() {
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}

			metrics.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	checks := make(map[string]interface{})

	// Database health check
	if err := s.db.HealthCheck(ctx); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			// the cache is optional; report it without failing the check
			checks["redis"] = map[string]interface{}{
				"status": "degraded",
				"error":  err.Error(),
			}
		} else {
			checks["redis"] = map[string]interface{}{"status": "ok"}
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains pending notifications
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")

	err := s.echo.Shutdown(ctx)
	if derr := s.dispatcher.Close(ctx); derr != nil && err == nil {
		err = derr
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = map[string]string{"message": s}
			} else {
				msg = he.Message
			}
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		case errors.As(err, &verrs):
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": verrs.Error()}
		default:
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
				WithError(err).
				Errorw("Internal server error", "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.WithError(err).Errorw("Error sending response")
			}
		}
	}
}
