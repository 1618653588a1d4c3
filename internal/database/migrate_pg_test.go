package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"girder/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type pgEnv struct {
	host string
	port string
	user string
	pass string
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func readPGEnv(t *testing.T) pgEnv {
	t.Helper()
	if os.Getenv("GIRDER_PG_TEST") == "" {
		t.Skip("set GIRDER_PG_TEST=1 with a reachable Postgres to run migration tests")
	}
	return pgEnv{
		host: getEnvOrDefault("DB_HOST", "localhost"),
		port: getEnvOrDefault("DB_PORT", "5432"),
		user: getEnvOrDefault("DB_USER", "girder_user"),
		pass: getEnvOrDefault("DB_PASSWORD", "girder_password"),
	}
}

func maintenanceDSN(cfg pgEnv, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", cfg.user, cfg.pass, cfg.host, cfg.port, dbName)
}

func createEphemeralDB(t *testing.T) (pgEnv, string) {
	t.Helper()
	cfg := readPGEnv(t)
	dbName := fmt.Sprintf("girder_mig_%d", time.Now().UnixNano())

	sqlDB, err := sql.Open("pgx", maintenanceDSN(cfg, "postgres"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = sqlDB.ExecContext(context.Background(), `CREATE DATABASE `+dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = sqlDB.ExecContext(context.Background(), `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, dbName)
		_, _ = sqlDB.ExecContext(context.Background(), `DROP DATABASE IF EXISTS `+dbName)
	})

	return cfg, dbName
}

func openEphemeralGorm(t *testing.T, cfg pgEnv, dbName string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", cfg.host, cfg.port, cfg.user, cfg.pass, dbName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db
}

func TestMigrateFreshPostgres(t *testing.T) {
	cfg, dbName := createEphemeralDB(t)
	db := openEphemeralGorm(t, cfg, dbName)

	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "projects", "access_requests", "audit_logs"} {
		var exists bool
		require.NoError(t, db.Raw(
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema='public' AND table_name = ?)`,
			table).Scan(&exists).Error)
		assert.True(t, exists, "expected table %s to exist", table)
	}

	var idxExists bool
	require.NoError(t, db.Raw(
		`SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE tablename='access_requests' AND indexname='idx_access_requests_open_pair')`).
		Scan(&idxExists).Error)
	assert.True(t, idxExists, "expected partial unique index on open access requests")

	// Migrate must be safe to run twice.
	require.NoError(t, Migrate(db))
}

func TestOpenPairIndexEnforcedOnPostgres(t *testing.T) {
	cfg, dbName := createEphemeralDB(t)
	db := openEphemeralGorm(t, cfg, dbName)
	require.NoError(t, Migrate(db))

	contact := models.User{Username: "contact", Email: "contact@example.com", Password: "x", Role: models.UserRoleStakeholder, Active: true}
	require.NoError(t, db.Create(&contact).Error)
	project := models.Project{Name: "Bridge", Number: "P-0001"}
	require.NoError(t, db.Create(&project).Error)

	first := models.AccessRequest{ContactID: contact.ID, ProjectID: project.ID, RequestedRole: models.AccessRoleViewer, Status: models.AccessRequestStatusPending}
	require.NoError(t, db.Create(&first).Error)

	dup := models.AccessRequest{ContactID: contact.ID, ProjectID: project.ID, RequestedRole: models.AccessRoleCommenter, Status: models.AccessRequestStatusPending}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// A closed record frees the pair for a new submission.
	require.NoError(t, db.Model(&first).Update("status", models.AccessRequestStatusRejected).Error)
	resubmit := models.AccessRequest{ContactID: contact.ID, ProjectID: project.ID, RequestedRole: models.AccessRoleViewer, Status: models.AccessRequestStatusPending}
	require.NoError(t, db.Create(&resubmit).Error)
}
