package db

import (
	"context"
	"fmt"

	"github.com/smallbiznis/ledgerly/internal/config"
	obslogger "github.com/smallbiznis/ledgerly/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

// Module provides the shared gorm connection.
var Module = fx.Module("db",
	fx.Provide(New),
)

// New opens the database, applies pool settings, and registers the
// tracing and metrics plugins.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DBName))); err != nil {
		return nil, fmt.Errorf("register otelgorm plugin: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.DBName,
		RefreshInterval: 15,
	})); err != nil {
		return nil, fmt.Errorf("register prometheus plugin: %w", err)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return sqlDB.PingContext(ctx)
			},
			OnStop: func(ctx context.Context) error {
				_ = ctx
				log.Info("closing database connection")
				return sqlDB.Close()
			},
		})
	}

	return conn, nil
}
