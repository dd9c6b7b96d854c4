package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/applicants"
	googleauth "anoud-backend/internal/auth"
	"anoud-backend/internal/cvimport"
	"anoud-backend/internal/jobs"
	"anoud-backend/internal/leads"
	"anoud-backend/internal/queue"
	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/config"
	"anoud-backend/internal/shared/server"
	"anoud-backend/internal/shared/storage/db"
	"anoud-backend/internal/shared/storage/object"
	localstore "anoud-backend/internal/shared/storage/object/local"
	s3store "anoud-backend/internal/shared/storage/object/s3"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Store             object.ObjectStore
	Queue             queue.Client
	UsersService      *users.Service
	JobsService       *jobs.Service
	ApplicantsService *applicants.Service
	LeadsService      *leads.Service
	CVImportService   *cvimport.Service
	GoogleAuth        *googleauth.GoogleService
}

// Build prepares shared dependencies and wires routes. Without a database
// in dev-like environments every repository falls back to memory.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}
	buildServices(app)

	if err := seedSuperadmin(ctx, app); err != nil {
		return nil, err
	}

	jobsHandler := jobs.NewHandler(app.JobsService)
	usersHandler := users.NewHandler(app.UsersService)
	applicantsHandler := applicants.NewHandler(app.ApplicantsService)
	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		DB:     sqlDB,
		Auth:   app.GoogleAuth,
		Public: []server.PublicRoutes{jobsHandler, applicantsHandler},
		Admin: []server.AdminRoutes{
			usersHandler,
			jobsHandler,
			applicantsHandler,
			leads.NewHandler(app.LeadsService, cfg.UploadTmpDir),
		},
		Superadmin: []server.SuperadminRoutes{usersHandler, cvimport.NewHandler(app.CVImportService)},
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.EmailQueueURL) == "" {
		return queue.LogClient{}, nil
	}
	return queue.NewSQSClient(ctx, cfg.EmailQueueURL, cfg.AWSRegion)
}

func buildServices(app *App) {
	var (
		userRepo      users.Repo
		jobRepo       jobs.Repo
		applicantRepo applicants.Repo
		leadRepo      leads.Repo
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		jobRepo = &jobs.PGRepo{DB: app.DB}
		applicantRepo = &applicants.PGRepo{DB: app.DB}
		leadRepo = &leads.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		jobRepo = jobs.NewMemoryRepo()
		applicantRepo = applicants.NewMemoryRepo()
		leadRepo = leads.NewMemoryRepo()
	}

	app.UsersService = users.NewService(userRepo)
	app.JobsService = jobs.NewService(jobRepo)
	app.ApplicantsService = applicants.NewService(applicantRepo, app.Store, app.JobsService)
	app.LeadsService = leads.NewService(leadRepo, app.Queue)
	app.CVImportService = cvimport.NewService(app.UsersService)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.UsersService,
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
	)
}

// seedSuperadmin makes sure the configured superadmin can sign in.
func seedSuperadmin(ctx context.Context, app *App) error {
	email := app.Config.SuperadminEmail
	if email == "" {
		return nil
	}
	user, err := app.UsersService.EnsureAccount(ctx, users.NewAccount{
		Email: email,
		Name:  app.Config.SuperadminName,
		Role:  auth.RoleSuperadmin,
	})
	if err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	if user.Role != auth.RoleSuperadmin {
		telemetry.Warn("bootstrap.superadmin_role_mismatch", map[string]any{"user_id": user.ID, "role": string(user.Role)})
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
