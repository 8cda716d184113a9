package db

import (
	"fmt"
	"strings"
	"time"

	"ecshop/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

// Dialector は DB_DRIVER に応じた gorm.Dialector を返す。
func Dialector(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(DSN(cfg)), nil
	case "mysql":
		return mysql.Open(DSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Driver)
	}
}

// DATABASE_URL があれば最優先で使う。
// mysql は clientFoundRows=true を必須にする（値が同じ UPDATE でも RowsAffected を 1 にする）
func DSN(cfg config.DBConfig) string {
	if cfg.URL != "" {
		if cfg.Driver == "mysql" && !strings.Contains(cfg.URL, "clientFoundRows=") {
			sep := "?"
			if strings.Contains(cfg.URL, "?") {
				sep = "&"
			}
			return cfg.URL + sep + "clientFoundRows=true"
		}
		return cfg.URL
	}
	if cfg.Driver == "mysql" {
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name,
		)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
}
