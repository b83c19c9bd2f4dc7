package database

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     logger.LogLevel
}

// Connect opens the relational store. The driver is picked from the DSN:
// postgres:// and postgresql:// use PostgreSQL, mysql:// uses MySQL with the
// remainder as a native go-sql-driver DSN, anything else is a SQLite file.
func Connect(dsn string, opts Options, log *zap.Logger) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(opts.LogLevel),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		log.Info("connecting to PostgreSQL")
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case strings.HasPrefix(dsn, "mysql://"):
		log.Info("connecting to MySQL")
		db, err = gorm.Open(mysql.Open(strings.TrimPrefix(dsn, "mysql://")), cfg)
	default:
		log.Info("using SQLite", zap.String("dsn", dsn))
		db, err = gorm.Open(
			gormsqlite.New(gormsqlite.Config{
				DriverName: "sqlite",
				DSN:        dsn,
			}),
			cfg,
		)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
