package seed

import (
	"testing"

	"girder/internal/database"
	"girder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestSeedPopulatesWorkflowData(t *testing.T) {
	db := setupSeedTestDB(t)

	opts := Options{
		NumStaff:        2,
		NumStakeholders: 6,
		NumProjects:     4,
		NumRequests:     25,
	}
	require.NoError(t, Seed(db, opts))

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(opts.NumStaff+opts.NumStakeholders), userCount)

	var projectCount int64
	require.NoError(t, db.Model(&models.Project{}).Count(&projectCount).Error)
	assert.Equal(t, int64(opts.NumProjects), projectCount)

	var requests []models.AccessRequest
	require.NoError(t, db.Find(&requests).Error)
	require.NotEmpty(t, requests)

	type pair struct{ contact, project uint }
	open := make(map[pair]int)
	for _, r := range requests {
		assert.NotEmpty(t, r.ReferenceID)
		assert.True(t, models.IsValidAccessRole(r.RequestedRole), "role %q", r.RequestedRole)

		if r.Status.IsOpen() {
			open[pair{r.ContactID, r.ProjectID}]++
		}

		if r.Status == models.AccessRequestStatusPending {
			assert.Nil(t, r.ProcessedAt)
			assert.Nil(t, r.ProcessedByID)
			assert.Nil(t, r.AutoApprovalReason)
			continue
		}

		require.NotNil(t, r.ProcessedAt)
		human := r.ProcessedByID != nil
		auto := r.AutoApprovalReason != nil
		assert.NotEqual(t, human, auto, "request %d must be exactly one of human or auto decided", r.ID)
		if r.Status == models.AccessRequestStatusRejected {
			assert.True(t, human, "rejections are human decisions")
		}
	}

	for p, n := range open {
		assert.Equal(t, 1, n, "pair %+v has %d open requests", p, n)
	}
}

func TestFactoryCreateUsersSharePassword(t *testing.T) {
	db := setupSeedTestDB(t)
	f := NewFactory(db)

	users, err := f.CreateUsers(3, models.UserRoleStakeholder)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.Equal(t, f.passwordHash, u.Password)
		assert.Equal(t, models.UserRoleStakeholder, u.Role)
		assert.True(t, u.Active)
	}
}
