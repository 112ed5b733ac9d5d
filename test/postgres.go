package test

import (
	"fmt"
	"net"
	"testing"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/database"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	postgresUser     = "telecrm"
	postgresPassword = "secret"
	postgresDatabase = "telecrm"
)

// NewPostgres starts a throwaway postgres container and migrates models into
// it. The container is purged when the test finishes.
func NewPostgres(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDatabase,
		},
	}, func(hostConfig *docker.HostConfig) {
		hostConfig.AutoRemove = true
		hostConfig.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})

	host, port, err := net.SplitHostPort(resource.GetHostPort("5432/tcp"))
	require.NoError(t, err)

	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, postgresUser, postgresPassword, postgresDatabase, port,
	)

	var db *gorm.DB

	require.NoError(t, pool.Retry(func() error {
		db, err = gorm.Open(postgres.Open(dsn), database.GormConfig())
		if err != nil {
			return err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}

		return sqlDB.Ping()
	}))

	require.NoError(t, db.AutoMigrate(models...))

	return db
}
