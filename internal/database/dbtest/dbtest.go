// Package dbtest 为各包测试提供迁移好的内存 SQLite 数据库。
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"careerDesk/internal/database"
)

// Open 返回独立的内存数据库，测试结束时关闭。
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedUser 插入一个本地用户。
func SeedUser(t testing.TB, db *gorm.DB, identityID string) database.User {
	t.Helper()
	user := database.User{IdentityID: identityID, Email: identityID + "@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", identityID, err)
	}
	return user
}
