package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appAuth "github.com/yigit/thesisflow/internal/app/auth"
	appControllers "github.com/yigit/thesisflow/internal/app/controllers"
	"github.com/yigit/thesisflow/internal/app/honorarium"
	appMigrations "github.com/yigit/thesisflow/internal/app/migrations"
	appRepos "github.com/yigit/thesisflow/internal/app/repositories"
	"github.com/yigit/thesisflow/internal/app/repositories/memory"
	appRoutes "github.com/yigit/thesisflow/internal/app/routes"
	appServices "github.com/yigit/thesisflow/internal/app/services"
	"github.com/yigit/thesisflow/internal/app/workflow"
	"github.com/yigit/thesisflow/internal/config"
	"github.com/yigit/thesisflow/internal/db"
	appMiddleware "github.com/yigit/thesisflow/internal/middleware"
	pkgAuth "github.com/yigit/thesisflow/internal/pkg/auth"
	"github.com/yigit/thesisflow/internal/pkg/filestorage"
	"github.com/yigit/thesisflow/internal/pkg/helpers"
	"github.com/yigit/thesisflow/internal/pkg/logger"
	"github.com/yigit/thesisflow/internal/pkg/notify"
	"github.com/yigit/thesisflow/internal/pkg/websocket"
	"github.com/yigit/thesisflow/internal/seed"
)

// DefaultConfigPath is used when no config file is given
const DefaultConfigPath = "configs/config.yaml"

// Events that are mailed to the graduate school office
var mailedEvents = []notify.EventKind{
	notify.EventRequestApproved,
	notify.EventScheduleSet,
	notify.EventRequestCompleted,
	notify.EventSyncCompleted,
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config *config.Config
	Store  appRepos.Store

	DirectoryService    appServices.DirectoryService
	RequestService      appServices.DefenseRequestService
	VerificationService appServices.VerificationService
	SyncService         appServices.SyncService
	SweeperService      appServices.SweeperService

	Dispatcher *notify.Dispatcher
	Hub        *websocket.Hub
	WSHandler  *websocket.Handler

	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	FileStorage    *filestorage.LocalStorage
	Logger         zerolog.Logger

	closers []func()
}

// Close releases the database pool and anything else opened at startup.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured store. For postgres it connects, pings and
// applies pending migrations; the returned func closes the pool.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		lgr.Warn().Msg("Using the in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := RunMigrations(ctx, cfg, database, lgr); err != nil {
		database.Close()
		return nil, nil, err
	}
	return appRepos.NewPostgresStore(database), database.Close, nil
}

// RunMigrations applies the SQL files in the configured migrations directory.
func RunMigrations(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
	dir := cfg.Server.MigrationsDir
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		lgr.Error().Str("path", dir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", dir, err)
	}

	lgr.Info().Str("path", dir).Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, dir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// WorkflowOptions translates the workflow section of cfg.
func WorkflowOptions(cfg *config.Config) appServices.WorkflowOptions {
	return appServices.WorkflowOptions{
		Rules: workflow.Rules{
			SeparateCoordinatorGate:            cfg.Workflow.SeparateCoordinatorGate,
			AllowRetrieveFromCoordinatorReview: cfg.Workflow.AllowRetrieveFromCoordinatorReview,
		},
		Location:        cfg.Location(),
		DefaultDuration: cfg.DefaultDuration(),
	}
}

// loadRates reads the honorarium table. Without a file every receivable is
// recorded as unknown.
func loadRates(path string, lgr zerolog.Logger) (*honorarium.Table, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		lgr.Warn().Str("path", path).Msg("Honorarium rates file not found, receivables will be unknown")
		return honorarium.NewTable(nil), nil
	}
	rates, err := honorarium.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load honorarium rates: %w", err)
	}
	return rates, nil
}

// BuildDependencies initializes services, notifiers and controllers on top of store.
func BuildDependencies(ctx context.Context, cfg *config.Config, store appRepos.Store, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Store: store, Logger: lgr}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, filestorage.DefaultMaxSize)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	rates, err := loadRates(cfg.Sync.RatesFile, lgr)
	if err != nil {
		return nil, err
	}

	// Event fan-out: audit log, websocket feed and optionally mail
	deps.Hub = websocket.NewHub(logger.Component("websocket"))
	deps.Dispatcher = notify.NewDispatcher(logger.Component("notify"),
		notify.NewLogNotifier(logger.Component("audit")),
		deps.Hub,
	)
	if cfg.SMTP.Enabled {
		deps.Dispatcher.Subscribe(notify.NewEmailNotifier(notify.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			Recipients: cfg.SMTPRecipients(),
			UseTLS:     cfg.SMTP.Port == 465,
		}, logger.Component("email"), mailedEvents...))
	}

	opts := WorkflowOptions(cfg)
	deps.DirectoryService = appServices.NewDirectoryService(store.Faculty())
	deps.RequestService = appServices.NewDefenseRequestService(store, deps.DirectoryService, deps.Dispatcher, opts, logger.Component("requests"))
	deps.SyncService = appServices.NewSyncService(store, rates, deps.Dispatcher, opts, logger.Component("sync"))

	var syncer appServices.RecordSyncer
	if cfg.Sync.OnReadyForFinance {
		syncer = deps.SyncService
	}
	deps.VerificationService = appServices.NewVerificationService(store, syncer, opts, logger.Component("verifications"))
	deps.SweeperService = appServices.NewSweeperService(store, deps.RequestService, opts, logger.Component("sweeper"))

	if _, err := seed.Faculty(ctx, deps.DirectoryService, cfg.Seed.FacultyFile, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to seed faculty directory, proceeding anyway...")
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(deps.RequestService)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		DefenseRequests: appControllers.NewDefenseRequestController(deps.RequestService, deps.AuthzService),
		Verifications:   appControllers.NewVerificationController(deps.VerificationService, deps.FileStorage, deps.AuthzService),
		Jobs:            appControllers.NewJobController(deps.SweeperService, deps.SyncService, deps.AuthzService),
		Faculty:         appControllers.NewFacultyController(deps.DirectoryService, deps.AuthzService),
	}
	deps.WSHandler = websocket.NewHandler(deps.Hub, deps.AuthzService, logger.Component("websocket"))

	return deps, nil
}

// Build loads configuration, opens the store and wires every dependency.
func Build(ctx context.Context, configPath string) (*Dependencies, error) {
	cfg, lgr, err := LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := SetupStore(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	deps, err := BuildDependencies(ctx, cfg, store, lgr)
	if err != nil {
		closeStore()
		return nil, err
	}
	deps.closers = append(deps.closers, closeStore)
	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(logger.Component("http")))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.WSHandler)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
