package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/logistics/settlement/internal/infrastructure/config"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const pingTimeout = 3 * time.Second

// Database owns the settlement store's gorm handle and its pool
type Database struct {
	DB *gorm.DB
}

// NewDatabase connects to the postgres settlement store described by cfg
func NewDatabase(cfg *config.DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	return open(postgres.Open(cfg.DSN()), cfg, zapLogger)
}

// open builds the gorm handle on any dialector, applies the pool limits
// from cfg and verifies the connection.
func open(dialector gorm.Dialector, cfg *config.DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.LogLevel),
			logger.WithSlowThreshold(cfg.SlowQueryThreshold)),
		// every settlement write already runs inside an explicit scope
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open settlement store: %w", err)
	}

	d := &Database{DB: gdb}
	pool, err := d.SQLDB()
	if err != nil {
		return nil, err
	}
	applyPoolLimits(pool, cfg)

	if err := d.Ping(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return d, nil
}

// applyPoolLimits copies the pool settings onto pool. An unset idle limit keeps
// database/sql's default instead of disabling idle connections.
func applyPoolLimits(pool *sql.DB, cfg *config.DatabaseConfig) {
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// SQLDB returns the pool behind the gorm handle
func (d *Database) SQLDB() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("settlement store pool: %w", err)
	}
	return pool, nil
}

// Ping reports whether the store answers within pingTimeout. Used by /health.
func (d *Database) Ping() error {
	pool, err := d.SQLDB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return fmt.Errorf("ping settlement store: %w", err)
	}
	return nil
}

// Close releases the pool
func (d *Database) Close() error {
	pool, err := d.SQLDB()
	if err != nil {
		return err
	}
	return pool.Close()
}
