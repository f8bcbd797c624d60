package cmd

import (
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/timetrack/internal"
	"github.com/frahmantamala/timetrack/internal/approval"
	"github.com/frahmantamala/timetrack/internal/auth"
	authRepo "github.com/frahmantamala/timetrack/internal/auth/postgres"
	"github.com/frahmantamala/timetrack/internal/closedperiod"
	settingRepo "github.com/frahmantamala/timetrack/internal/closedperiod/postgres"
	"github.com/frahmantamala/timetrack/internal/core/events"
	"github.com/frahmantamala/timetrack/internal/hierarchy"
	hierarchyRepo "github.com/frahmantamala/timetrack/internal/hierarchy/postgres"
	"github.com/frahmantamala/timetrack/internal/locale"
	"github.com/frahmantamala/timetrack/internal/membership"
	memberRepo "github.com/frahmantamala/timetrack/internal/membership/postgres"
	"github.com/frahmantamala/timetrack/internal/project"
	projectRepo "github.com/frahmantamala/timetrack/internal/project/postgres"
	"github.com/frahmantamala/timetrack/internal/timeentry"
	entryRepo "github.com/frahmantamala/timetrack/internal/timeentry/postgres"
	"github.com/frahmantamala/timetrack/internal/user"
	userRepo "github.com/frahmantamala/timetrack/internal/user/postgres"
	"github.com/frahmantamala/timetrack/internal/visibility"
	"github.com/frahmantamala/timetrack/pkg/logger"
)

// Dependencies is the object graph shared by the server and the maintenance commands.
type Dependencies struct {
	Config *internal.Config
	SQL    *sqlx.DB
	DB     *gorm.DB
	Logger *slog.Logger
	Bus    *events.EventBus

	Translator   *locale.Translator
	Checker      *auth.RolePermissionChecker
	Auth         *auth.Service
	Users        *user.Service
	Projects     *project.Service
	Members      *memberRepo.MembershipRepository
	Memberships  *membership.Service
	Synchronizer *hierarchy.Synchronizer
	Reconciler   *hierarchy.Reconciler
	Approval     *approval.Policy
	ClosedPeriod *closedperiod.Policy
	TimeEntries  *timeentry.Service
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitWith(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	translator, err := locale.NewTranslator(cfg.Locale.DefaultLanguage)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	grants, err := auth.GrantsFromConfig(cfg.Permissions)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("invalid permissions config: %w", err)
	}
	matrix, err := auth.NewPermissionMatrix(grants)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to build permission matrix: %w", err)
	}

	deps := &Dependencies{
		Config:     cfg,
		SQL:        sqlDB,
		DB:         db,
		Logger:     lg,
		Bus:        events.NewEventBus(lg),
		Translator: translator,
	}

	deps.Members = memberRepo.NewMembershipRepository(db)
	deps.Checker = auth.NewPermissionChecker(deps.Members, matrix)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	deps.Auth = auth.NewService(authRepo.NewRepository(db), tokens, cfg.Security.BCryptCost, lg)
	deps.Users = user.NewService(userRepo.NewUserRepository(db), cfg.Security.BCryptCost, lg)
	deps.Projects = project.NewService(projectRepo.NewProjectRepository(db), deps.Bus, lg)

	deps.Synchronizer = hierarchy.NewSynchronizer(
		deps.Members,
		deps.Projects,
		hierarchyRepo.NewDescriptionRepository(db),
		hierarchy.Options{SkipRootParent: cfg.Hierarchy.SkipRootParent},
		lg,
	)
	deps.Reconciler = hierarchy.NewReconciler(deps.Synchronizer, deps.Members, deps.Projects, cfg.Hierarchy.ReconcileConcurrency, lg)
	hierarchy.NewSubscriber(deps.Synchronizer, deps.Members, lg).Register(deps.Bus)
	deps.Memberships = membership.NewService(deps.Members, deps.Bus, lg)

	deps.Approval = approval.NewPolicy(deps.Checker, approval.Options{
		ApprovedFieldID:     cfg.Approval.ApprovedCustomFieldID,
		LockApprovedEntries: cfg.Approval.LockApprovedEntries,
	}, lg)
	deps.ClosedPeriod = closedperiod.NewPolicy(settingRepo.NewSettingRepository(db), lg)
	deps.TimeEntries = timeentry.NewService(
		entryRepo.NewTimeEntryRepository(db),
		deps.Checker,
		deps.Approval,
		deps.ClosedPeriod,
		visibility.NewScope(deps.Checker, lg),
		cfg.Approval.ApprovedCustomFieldID,
		lg,
	)

	return deps, nil
}

func (d *Dependencies) Close() {
	if err := d.SQL.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	db, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
