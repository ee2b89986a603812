package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/ledgerly/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect builds the gorm dialector from configuration. DATABASE_URL wins
// over the discrete host/user settings when both are present.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	if url := strings.TrimSpace(cfg.DBURL); url != "" {
		return dialectFromURL(url)
	}

	switch cfg.DBType {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
		)), nil
	case "sqlite":
		return sqlite.Open("gorm.db"), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

func dialectFromURL(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	case strings.HasPrefix(url, "mysql://"):
		return mysql.Open(strings.TrimPrefix(url, "mysql://")), nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://")), nil
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), nil
	default:
		return nil, fmt.Errorf("unsupported database url scheme in %q", url)
	}
}
