// Package testdb 为测试提供已迁移的内存 SQLite 库
package testdb

import (
	"testing"

	"github.com/goback/backoffice/pkg/config"
	"github.com/goback/backoffice/pkg/database"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New 打开内存库并迁移全部模型，测试结束时关闭
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}
