package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskhub-api/internal/config"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		d, err := Dialector(&config.Config{DBDriver: driver, DBHost: "localhost", DBPort: "1"})
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestMigrateDB_IsRepeatable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, MigrateDB(db))
	require.NoError(t, MigrateDB(db))

	for _, idx := range indexes {
		assert.True(t, db.Migrator().HasIndex(idx.table, idx.name), idx.name)
	}
}

func TestScopes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.Project{}))

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Project{TenantID: 1, Name: "a", OwnerID: 1, ManagerID: 1}).Error)
	}
	require.NoError(t, db.Create(&models.Project{TenantID: 2, Name: "b", OwnerID: 1, ManagerID: 1}).Error)

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Scopes(ForTenant("projects", 1)).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	var page []models.Project
	require.NoError(t, db.Scopes(ForTenant("projects", 1), Paginate(utils.Page{Number: 2, Size: 2})).
		Order("id").Find(&page).Error)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].ID)
}
