package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/apexgym/studio-api/api/swagger"
	"github.com/apexgym/studio-api/internal/handler"
	"github.com/apexgym/studio-api/internal/middleware"
	"github.com/apexgym/studio-api/internal/models"
	"github.com/apexgym/studio-api/internal/repository"
	"github.com/apexgym/studio-api/internal/service"
	"github.com/apexgym/studio-api/pkg/cache"
	"github.com/apexgym/studio-api/pkg/config"
	"github.com/apexgym/studio-api/pkg/database"
	"github.com/apexgym/studio-api/pkg/logger"
	corsmiddleware "github.com/apexgym/studio-api/pkg/middleware/cors"
	reqidmiddleware "github.com/apexgym/studio-api/pkg/middleware/requestid"
	"github.com/apexgym/studio-api/pkg/ratelimit"
)

// @title Apex Gymnastics Studio API
// @version 1.0.0
// @description Enrollment, class placement and studio administration API
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	redisClient, err = cache.NewRedis(cfg.Redis)
	if err != nil {
		// Catalog caching and the redis limiter degrade gracefully without it.
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	applicationRepo := repository.NewApplicationRepository(db)
	classRepo := repository.NewClassRepository(db)
	seatRepo := repository.NewClassEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}

	metricsService := service.NewMetricsService()
	placementService := service.NewPlacementService(classRepo, seatRepo, applicationRepo, logr)
	enrollmentService := service.NewEnrollmentService(applicationRepo, userRepo, placementService, validate, logr, cfg.Placement.AutoAssign)
	classService := newClassService(classRepo, seatRepo, cacheRepo, cfg.Catalog.CacheTTL, validate, logr)
	exportService := service.NewExportService(seatRepo, classRepo, logr)
	paymentService := service.NewPaymentService(paymentRepo, applicationRepo, validate, logr, cfg.Payments.DefaultCurrency)
	userService := service.NewUserService(userRepo, validate, logr)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, metricsService)
	classHandler := handler.NewClassHandler(classService, placementService, exportService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	limiter := buildLimiter(cfg, redisClient, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface: the enrollment form and the class schedule.
	api.POST("/enrollments", middleware.RateLimit(limiter, metricsService, logr), enrollmentHandler.Submit)
	api.GET("/classes", classHandler.ListPublic)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	admin := api.Group("/admin", middleware.JWT(authService))

	staff := admin.Group("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff))
	staff.GET("/enrollments", enrollmentHandler.List)
	staff.GET("/enrollments/:id", enrollmentHandler.Get)
	staff.GET("/classes", classHandler.List)
	staff.GET("/classes/:id", classHandler.Get)
	staff.GET("/classes/:id/roster", middleware.Audit(userRepo, "ROSTER_EXPORT", "class"), classHandler.ExportRoster)

	admins := admin.Group("", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	admins.PATCH("/enrollments/:id/status", enrollmentHandler.UpdateStatus)
	admins.POST("/enrollments/:id/assign", enrollmentHandler.Assign)
	admins.DELETE("/enrollments/:id", enrollmentHandler.Delete)
	admins.POST("/classes", classHandler.Create)
	admins.PUT("/classes/:id", classHandler.Update)
	admins.DELETE("/classes/:id", classHandler.Deactivate)
	admins.POST("/classes/:id/activate", classHandler.Activate)
	admins.POST("/classes/:id/enroll", classHandler.EnrollDirect)
	admins.GET("/payments", paymentHandler.List)
	admins.POST("/payments", paymentHandler.Create)
	admins.PATCH("/payments/:id/status", paymentHandler.UpdateStatus)

	superadmins := admin.Group("/users", middleware.RequireRoles(models.RoleSuperAdmin))
	superadmins.GET("", userHandler.List)
	superadmins.POST("", userHandler.Create)
	superadmins.PUT("/:id", userHandler.Update)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newClassService(classRepo *repository.ClassRepository, seatRepo *repository.ClassEnrollmentRepository, cacheRepo *repository.CacheRepository, ttl time.Duration, validate *validator.Validate, logr *zap.Logger) *service.ClassService {
	if cacheRepo == nil {
		return service.NewClassService(classRepo, seatRepo, nil, ttl, validate, logr)
	}
	return service.NewClassService(classRepo, seatRepo, cacheRepo, ttl, validate, logr)
}

func buildLimiter(cfg *config.Config, redisClient *redis.Client, logr *zap.Logger) ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis && redisClient != nil {
		return ratelimit.NewRedisLimiter(redisClient, "ratelimit:enroll", cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
	}
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		logr.Warn("redis rate limit backend requested but redis is unavailable, using memory limiter")
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
}
