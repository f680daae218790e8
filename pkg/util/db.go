package util

import (
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase opens a gorm connection for the configured driver.
// An empty driver (or "sqlite") with an empty DSN yields an in-memory
// sqlite database, which is what the tests rely on.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	return createDatabaseInstance(cfg, driver, dsn)
}
