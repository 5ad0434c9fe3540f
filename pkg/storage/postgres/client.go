package postgres

import (
	"context"
	"fmt"

	"stockfeed/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type PostgresClient struct {
	DB     *gorm.DB
	logger *zap.Logger
}

func NewClient(dsn string, logger *zap.Logger) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db, logger: logger}, nil
}

// InitializeAndMigrate connects to Postgres, optionally creates the DB,
// applies the connection pool settings, and runs AutoMigrate for the price
// bar and symbol tables.
func InitializeAndMigrate(cfg config.PostgresConfig, env string, createDB bool, logger *zap.Logger) (*PostgresClient, error) {
	if createDB {
		if err := CreateDatabase(cfg, env); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(env), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.applyPoolSettings(cfg); err != nil {
		return nil, fmt.Errorf("failed to configure pool: %w", err)
	}

	if err := client.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) AutoMigrate() error {
	if err := p.DB.AutoMigrate(&PriceBarRecord{}, &SymbolRecord{}); err != nil {
		return fmt.Errorf("auto-migrate price bar tables: %w", err)
	}
	return nil
}

func (p *PostgresClient) applyPoolSettings(cfg config.PostgresConfig) error {
	db, err := p.DB.DB()
	if err != nil {
		return err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
