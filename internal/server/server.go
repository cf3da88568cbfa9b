package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/handlers"
	"github.com/coursehub/apiserver/internal/mq"
	"github.com/coursehub/apiserver/internal/observability"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/storage"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and the clients it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	queue      *mq.MQ
	objects    *storage.Recordings
	logger     logrus.FieldLogger
}

// Dependencies are the collaborators the HTTP handler is built from.
// Publisher and Objects may be nil, which disables change events and
// recording uploads respectively.
type Dependencies struct {
	Config    config.Config
	DB        *sql.DB
	Logger    logrus.FieldLogger
	Metrics   *observability.Metrics
	Publisher services.Publisher
	Objects   services.RecordingStore
}

// New connects to the database and the optional message queue and object
// store, and builds the HTTP server.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	queue, err := mq.NewFromConfig(ctx, cfg.MQ, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = queue.Close()
		_ = dbConn.Close()
		return nil, err
	}

	deps := Dependencies{
		Config:  cfg,
		DB:      dbConn,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}
	if queue != nil {
		deps.Publisher = queue
	}
	if objects != nil {
		deps.Objects = objects
	}
	deps.Metrics.RegisterDB(dbConn, cfg.Database.DBName)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewHandler(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"port":    port,
		"mq":      backendName(cfg.MQ.Backend),
		"storage": backendName(cfg.Storage.Backend),
	}).Info("server configured")

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		queue:      queue,
		objects:    objects,
		logger:     logger,
	}, nil
}

// NewHandler builds the router with every catalog resource, the token and
// account endpoints, health and metrics.
func NewHandler(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	events := services.NewEvents(deps.Publisher, logger)
	validate := services.NewValidator()

	courses := services.NewCatalog[types.Course](
		"courses", access.OpenRead, store.NewCourseRepository(deps.DB), validate, events)
	lessons := services.NewCatalog[types.Lesson](
		"lessons", access.OpenRead, store.NewLessonRepository(deps.DB), validate, events)
	categories := services.NewCatalog[types.Category](
		"categories", access.OpenRead, store.NewCategoryRepository(deps.DB), validate, events)
	profiles := services.NewCatalog[types.UserProfile](
		"profiles", access.Graduated, store.NewUserProfileRepository(deps.DB), validate, events)
	enrollments := services.NewCatalog[types.Enrollment](
		"enrollments", access.Graduated, store.NewEnrollmentRepository(deps.DB), validate, events)
	reviews := services.NewCatalog[types.Review](
		"reviews", access.Graduated, store.NewReviewRepository(deps.DB), validate, events)

	accounts := services.NewAccountService(store.NewAccountRepository(deps.DB), events)
	auth := handlers.NewAuthHandler(accounts, handlers.NewTokenIssuer(deps.Config.Auth))
	recordings := handlers.NewLessonRecordingHandler(
		services.NewLessonRecordings(lessons, deps.Objects))

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		observability.RequestLogger(logger),
		middleware.Recoverer,
		metrics.Middleware,
		cors.New(cors.Options{
			AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
		}).Handler,
		middleware.StripSlashes,
		middleware.Timeout(requestTimeout),
	)

	router.Method(http.MethodGet, "/healthz", observability.NewHealthChecker(deps.DB))
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/token", func(r chi.Router) {
		handlers.TokenRouter(r, auth)
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.Identify)

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, auth)
		})
		r.Route("/accounts", func(r chi.Router) {
			handlers.AccountRouter(r, handlers.NewAccountHandler(accounts))
		})
		r.Route("/courses", func(r chi.Router) {
			handlers.ResourceRouter(r, courses)
		})
		r.Route("/course", func(r chi.Router) {
			handlers.CourseRouter(r, handlers.NewCourseEndpoint(courses))
		})
		r.Route("/profiles", func(r chi.Router) {
			handlers.ResourceRouter(r, profiles)
		})
		r.Route("/lessons", func(r chi.Router) {
			handlers.ResourceRouter(r, lessons, func(r chi.Router) {
				handlers.LessonRecordingRouter(r, recordings)
			})
		})
		r.Route("/enrollments", func(r chi.Router) {
			handlers.ResourceRouter(r, enrollments)
		})
		r.Route("/reviews", func(r chi.Router) {
			handlers.ResourceRouter(r, reviews)
		})
		r.Route("/categories", func(r chi.Router) {
			handlers.ResourceRouter(r, categories)
		})
	})

	return router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the queue, the object
// store and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.queue.Close(); cerr != nil {
		s.logger.WithError(cerr).Warn("failed to close message queue")
	}
	if cerr := s.objects.Close(); cerr != nil {
		s.logger.WithError(cerr).Warn("failed to close object storage")
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func backendName(name string) string {
	if name == "" {
		return "disabled"
	}
	return name
}
