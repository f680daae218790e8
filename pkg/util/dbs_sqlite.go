//go:build !mysql && !pg

package util

import (
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// createDatabaseInstance 按 driver 打开对应的 gorm 连接。
// 未识别的 driver 一律走 sqlite；DSN 为空时退回进程内的内存库，
// OpenDatabase("", "") 的测试用法依赖这个回退。
func createDatabaseInstance(cfg *gorm.Config, driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "pg":
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	if dsn == "" {
		// 内存库，连接关掉数据就没了
		dsn = "file::memory:"
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}
