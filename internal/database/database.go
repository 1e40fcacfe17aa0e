package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/Tomlord1122/todo-api/internal/config"
	"github.com/Tomlord1122/todo-api/internal/domain"
	"github.com/Tomlord1122/todo-api/internal/logging"
)

// Service owns the process-wide connection pool.
type Service interface {
	Health() map[string]string
	Close() error
	GetDB() *gorm.DB
	// Migrate creates the todos table if it does not exist.
	Migrate() error
}

type service struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	driver string
	logger *log.Logger
}

// New opens the configured database and wraps it in GORM. The *sql.DB is
// opened by the database/sql driver directly (modernc sqlite, pgx, or
// go-sql-driver/mysql) and handed to the matching GORM dialector.
func New(cfg config.DBConfig, logger *log.Logger) (Service, error) {
	driverName, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == config.DriverSQLite && cfg.DSN == "" && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	configurePool(sqlDB, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	db, err := gorm.Open(dialector(cfg.Driver, sqlDB), &gorm.Config{
		Logger:  logging.NewGormLogger(logger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize gorm: %w", err)
	}

	logger.Info("database connected", "driver", cfg.Driver)
	return &service{db: db, sqlDB: sqlDB, driver: cfg.Driver, logger: logger}, nil
}

func dialector(driver string, conn *sql.DB) gorm.Dialector {
	switch driver {
	case config.DriverPostgres:
		return postgres.New(postgres.Config{Conn: conn})
	case config.DriverMySQL:
		return mysql.New(mysql.Config{Conn: conn})
	default:
		return sqlite.New(sqlite.Config{DriverName: sqliteDriverName, Conn: conn})
	}
}

// configurePool sizes the pool. SQLite allows one writer at a time, so a
// small pool with busy_timeout is enough. An in-memory SQLite database exists
// per connection and must be pinned to a single one.
func configurePool(db *sql.DB, cfg config.DBConfig) {
	if cfg.Driver == config.DriverSQLite {
		if cfg.Path == ":memory:" && cfg.DSN == "" {
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
			db.SetConnMaxLifetime(0)
			return
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func (s *service) Migrate() error {
	if err := s.db.AutoMigrate(&domain.Todo{}); err != nil {
		return fmt.Errorf("auto-migrate todos: %w", err)
	}
	return nil
}

// Health pings the database and reports pool statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	stats["driver"] = s.driver

	if err := s.sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = "database unreachable"
		s.logger.Error("db down", "err", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.sqlDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.MaxOpenConnections > 0 && dbStats.OpenConnections > dbStats.MaxOpenConnections*8/10 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) Close() error {
	s.logger.Info("closing database connection pool", "driver", s.driver)
	return s.sqlDB.Close()
}
