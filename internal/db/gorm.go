package db

import (
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGORM opens a gorm.DB on top of the already connected pgx pool so both
// access paths share the same connections.
func NewGORM(pg *Postgres) (*gorm.DB, error) {
	if pg == nil || pg.Pool == nil {
		return nil, fmt.Errorf("gorm: postgres pool not initialised")
	}

	sqlDB := stdlib.OpenDBFromPool(pg.Pool)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm: open: %w", err)
	}

	return gormDB, nil
}
