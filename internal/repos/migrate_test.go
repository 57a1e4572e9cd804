package repos

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/szonjajakab/ponpa/internal/types"
)

// Model tags must stay portable across both drivers: Postgres in
// production, sqlite in the test suites. Postgres-only default
// expressions in a gorm tag break AutoMigrate here.
func TestAutoMigrateAllModelsOnSqlite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Profile{},
		&types.ClothingItem{},
		&types.Outfit{},
		&types.TryOnSession{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
