package server

import (
	"testing"

	"girder/internal/config"
	"girder/internal/database"
	"girder/internal/events"
	"girder/internal/middleware"
	"girder/internal/models"
	"girder/internal/repository"
	"girder/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// newTestServer wires a Server against an in-memory database with no Redis,
// no notification gateway, and the given auto-approval rules.
func newTestServer(t *testing.T, db *gorm.DB, rules *config.ApprovalRules) *Server {
	t.Helper()

	bus := events.NewBus(middleware.Logger)
	eventLog := events.NewLog(16)
	bus.SubscribeAll("events.log", eventLog.Record)

	s := &Server{
		config:      &config.Config{JWTSecret: "test_secret"},
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		projectRepo: repository.NewProjectRepository(db),
		requestRepo: repository.NewAccessRequestRepository(db),
		auditRepo:   repository.NewAuditRepository(db),
		bus:         bus,
		eventLog:    eventLog,
	}
	s.accessService = service.NewAccessService(
		s.requestRepo, s.userRepo, s.projectRepo, s.auditRepo, rules, bus)
	s.adminService = service.NewAdminService(s.userRepo, s.auditRepo, bus)
	return s
}

// authedApp returns a fiber app whose requests carry the given user as the
// authenticated caller, mimicking what the auth middleware sets.
func authedApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	})
	return app
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Role:     role,
		Active:   active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProject(t *testing.T, db *gorm.DB, name, number, clientRef string) *models.Project {
	t.Helper()
	project := &models.Project{Name: name, Number: number, ClientRef: clientRef}
	require.NoError(t, db.Create(project).Error)
	return project
}
