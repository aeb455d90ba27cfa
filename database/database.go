// Package database provides database connection management for the marketflow
// realtime market data pipeline.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - Schema bootstrap (AutoMigrate plus the composite unique indexes the
//     ingest path depends on)
//
// Data Models:
//
//	All data models (Stock, RealtimeTrade, StockBar, EODPrice) are defined in
//	the models_pkg package to avoid circular import dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "marketflow/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the
// underlying DB instance.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// InitSchema creates or updates the tables used by the pipeline.
//
// The UNIQUE (stock_id, ts) index on stock_trades_realtime is load-bearing:
// it is what makes a replayed trade insert a no-op instead of a duplicate row.
func (d *Database) InitSchema() error {
	err := d.db.AutoMigrate(
		&models.Stock{},
		&models.RealtimeTrade{},
		&models.StockBar{},
		&models.EODPrice{},
	)
	if err != nil {
		return fmt.Errorf("InitSchema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Core data models - type aliases so callers don't need to import models_pkg
type Stock = models.Stock
type RealtimeTrade = models.RealtimeTrade
type StockBar = models.StockBar
type EODPrice = models.EODPrice
