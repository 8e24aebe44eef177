package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/AntonVanke/xuexinwang/internal/app/controllers"
	appMigrations "github.com/AntonVanke/xuexinwang/internal/app/migrations"
	appRepos "github.com/AntonVanke/xuexinwang/internal/app/repositories"
	appRoutes "github.com/AntonVanke/xuexinwang/internal/app/routes"
	appServices "github.com/AntonVanke/xuexinwang/internal/app/services"
	"github.com/AntonVanke/xuexinwang/internal/config"
	"github.com/AntonVanke/xuexinwang/internal/db"
	appMiddleware "github.com/AntonVanke/xuexinwang/internal/middleware"
	pkgAuth "github.com/AntonVanke/xuexinwang/internal/pkg/auth"
	"github.com/AntonVanke/xuexinwang/internal/pkg/credential"
	"github.com/AntonVanke/xuexinwang/internal/pkg/filestorage"
	"github.com/AntonVanke/xuexinwang/internal/pkg/helpers"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
	"github.com/AntonVanke/xuexinwang/internal/pkg/ratelimit"
	"github.com/AntonVanke/xuexinwang/internal/pkg/validation"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Database    *db.Database
	Repos       *appRepos.Repositories
	FileStorage *filestorage.LocalStorage
	JWTService  *pkgAuth.JWTService
	Redis       *redis.Client // nil when Redis is not configured

	UploadService     *appServices.UploadService
	SubmissionService *appServices.SubmissionService
	StudentService    *appServices.StudentService
	CredentialService *appServices.CredentialService
	AdminService      *appServices.AdminService

	AuthMiddleware    *appMiddleware.AuthMiddleware
	Limiters          appRoutes.Limiters
	StudentController *appControllers.StudentController
	AdminController   *appControllers.AdminController
	HealthController  *appControllers.HealthController

	Logger zerolog.Logger
}

// SetupLogger configures the process logger from the config.
// Debug mode forces the debug level.
func SetupLogger(cfg *config.Config) zerolog.Logger {
	level := logger.ParseLevel(cfg.Logging.Level)
	if cfg.Server.Debug {
		level = logger.DebugLevel
	}

	lgr := logger.Configure(logger.Config{
		Level:  level,
		Pretty: cfg.Logging.Format == "text",
	})
	lgr.Info().Str("logLevel", string(level)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return lgr
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.Database, error) {
	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")
	database, err := db.Open(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	if err := RunMigrations(database, lgr); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// RunMigrations applies the embedded schema for the database's driver
func RunMigrations(database *db.Database, lgr zerolog.Logger) error {
	lgr.Info().Msg("Running database migrations...")
	migrator, err := appMigrations.NewMigrator(database.DB, database.Driver, database.Builder())
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.Migrate(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// SetupRedis connects to Redis when an address is configured. An unreachable
// server is logged and the in-memory limiter is used instead.
func SetupRedis(cfg *config.Config, lgr zerolog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}

	client := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !ratelimit.Healthy(ctx, client) {
		lgr.Warn().Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, falling back to in-memory rate limiting")
		_ = client.Close()
		return nil
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	return client
}

func newLimiter(client *redis.Client, name string, perMinute int) ratelimit.Limiter {
	if client != nil {
		return ratelimit.NewRedisLimiter(client, "xuexin:ratelimit:"+name, perMinute, time.Minute)
	}
	return ratelimit.NewTokenBucket(perMinute, perMinute)
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.Database, redisClient *redis.Client, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Database: database,
		Redis:    redisClient,
		Logger:   lgr,
	}

	deps.Repos = appRepos.NewRepositories(database)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.PublicPrefix)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	generator, err := credential.NewGenerator(credential.Options{
		TemplatePath:    cfg.Credential.TemplatePath,
		FontPath:        cfg.Credential.FontPath,
		FontSize:        cfg.Credential.FontSize,
		InstitutionCode: cfg.Credential.InstitutionCode,
		EducationLevel:  cfg.Credential.EducationLevel,
		TrainingLevel:   cfg.Credential.TrainingLevel,
	})
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize credential generator")
		return nil, fmt.Errorf("failed to initialize credential generator: %w", err)
	}
	if cfg.Credential.FontPath == "" {
		lgr.Warn().Msg("No credential font configured, CJK text will not render on credential images")
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.Session.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.Session.Expiration, 2*time.Hour),
		TokenIssuer:    cfg.Session.Issuer,
	})

	// Initialize services
	students := deps.Repos.StudentRepository
	deps.UploadService = appServices.NewUploadService(deps.FileStorage, cfg.Upload.MaxSize, logger.Component("uploads"))
	deps.SubmissionService = appServices.NewSubmissionService(students, deps.UploadService, logger.Component("submissions"))
	deps.StudentService = appServices.NewStudentService(students, deps.UploadService, cfg.Search.Limit, logger.Component("students"))
	deps.CredentialService = appServices.NewCredentialService(deps.StudentService, generator, logger.Component("credentials"))
	deps.AdminService = appServices.NewAdminService(deps.Repos.AdminRepository, deps.JWTService, logger.Component("admin"))

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.AdminService)
	deps.Limiters = appRoutes.Limiters{
		Login:  newLimiter(redisClient, "login", cfg.RateLimit.LoginPerMinute),
		Submit: newLimiter(redisClient, "submit", cfg.RateLimit.SubmitPerMinute),
	}

	deps.StudentController = appControllers.NewStudentController(
		deps.SubmissionService,
		deps.StudentService,
		deps.CredentialService,
		deps.UploadService,
		cfg.PublicBaseURL(),
		logger.Component("student-api"),
	)
	deps.AdminController = appControllers.NewAdminController(
		deps.AdminService,
		deps.StudentService,
		deps.CredentialService,
		deps.UploadService,
		deps.AuthMiddleware,
		logger.Component("admin-api"),
	)
	deps.HealthController = appControllers.NewHealthController(database.DB, redisClient)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := validation.RegisterGinRules(); err != nil {
		return nil, fmt.Errorf("failed to register validation rules: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestID(), appMiddleware.RequestLogger())
	// Multipart parsing keeps at most the upload ceiling in memory
	router.MaxMultipartMemory = cfg.Upload.MaxSize + 1<<20

	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(helpers.ParseDuration(cfg.Session.Expiration, 2*time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(cfg.Session.CookieName, store))

	appRoutes.SetupSwagger(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static(deps.FileStorage.PublicPrefix(), deps.FileStorage.BasePath())
	lgr.Info().Str("path", deps.FileStorage.BasePath()).Msg("Static file serving configured for uploads directory")

	appRoutes.SetupRouter(router,
		deps.StudentController,
		deps.AdminController,
		deps.HealthController,
		deps.AuthMiddleware,
		deps.Limiters,
	)

	return router, nil
}
