// Package db opens the signaling server's peer registry.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const MemoryDSN = ":memory:"

// Peer is an endpoint currently registered with the signaling server.
type Peer struct {
	ID          string `gorm:"primaryKey"`
	RemoteAddr  string
	ConnectedAt int64
}

func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every pooled connection to :memory: would get its own database
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Peer{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
