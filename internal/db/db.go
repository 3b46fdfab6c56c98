package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是编辑器草稿与站点设置共用的本地库连接。
var DB *gorm.DB

// 自动保存与 SSE 预览会并发读写草稿，开启 WAL 并设置忙等待。
const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Init 打开本地草稿库并执行自动迁移，databasePath 为空时使用 edunet.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "edunet.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir %s: %w", dir, err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(DSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := Migrate(gdb); err != nil {
		return fmt.Errorf("migrate %s: %w", path, err)
	}
	DB = gdb
	return nil
}

// DSN appends the sqlite pragmas to a file path, keeping any query already present.
func DSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return "file:" + path + "?" + sqliteParams
}

// Migrate creates the draft and settings tables.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&SectionDraft{}, &SystemSetting{})
}

// Close releases the shared connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
