package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/graphrag-cypher/internal/platform/envutil"
	"github.com/yungbote/graphrag-cypher/internal/platform/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the run-log database. An empty Driver disables it.
type Config struct {
	Driver string
	DSN    string
}

func ConfigFromEnv() Config {
	return Config{
		Driver: strings.ToLower(envutil.String("RUNLOG_DRIVER", "")),
		DSN:    envutil.String("RUNLOG_DSN", ""),
	}
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.Driver) != "" }

// Open connects and migrates the run-log schema.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	// stdout is reserved for batch output.
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s run log: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// SQLite allows one writer; concurrent questions queue on one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("failed to migrate run log: %w", err)
	}
	if logg != nil {
		logg.Info("run log ready", "driver", cfg.Driver, "dsn", cfg.DSN)
	}
	return db, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSQLite:
		if dsn == "" {
			dsn = "graphrag_runs.db"
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("RUNLOG_DSN required for postgres")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported run log driver %q", cfg.Driver)
	}
}
