//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/server"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	adminUsername = "admin"
	adminPassword = "admin-pass"
	userUsername  = "student"
	userPassword  = "student-pass"
)

var (
	baseURL  string
	database *sql.DB
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("coursehub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		return 1
	}
	defer func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(terminateCtx)
	}()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read connection string: %v\n", err)
		return 1
	}
	cfg, err := testConfig(connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build config: %v\n", err)
		return 1
	}

	if err := db.Migrate(cfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	database, err = db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer database.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	srv := httptest.NewServer(server.NewHandler(server.Dependencies{
		Config: cfg,
		DB:     database,
		Logger: logger,
	}))
	defer srv.Close()
	baseURL = srv.URL

	return m.Run()
}

func testConfig(connStr string) (config.Config, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return config.Config{}, err
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return config.Config{}, err
	}
	password, _ := u.User.Password()

	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}

	return config.Config{
		MigrationsPath: filepath.Join(wd, "..", "..", "db", "migrations"),
		Database: config.DatabaseConfig{
			Host:     u.Hostname(),
			Port:     port,
			User:     u.User.Username(),
			Password: password,
			DBName:   filepath.Base(u.Path),
		},
		Auth: config.AuthConfig{
			JWTSecret:  "e2e-secret",
			AccessTTL:  5 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		MQ:   config.MQConfig{EventsChannel: "catalog.events"},
	}, nil
}

// resetDatabase empties every table and recreates one administrator and
// one regular account.
func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := database.ExecContext(ctx, `
		TRUNCATE accounts, user_profiles, courses, lessons, enrollments,
			enrollment_courses, reviews, categories, category_courses
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}

	accounts := services.NewAccountService(store.NewAccountRepository(database), nil)
	if _, err := accounts.CreateSuperuser(ctx, adminUsername, adminPassword); err != nil {
		t.Fatalf("create superuser: %v", err)
	}
	if _, err := accounts.Register(ctx, userUsername, userPassword); err != nil {
		t.Fatalf("register user: %v", err)
	}
}
