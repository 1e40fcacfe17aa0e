package database

import (
	"fmt"
	"net"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/Tomlord1122/todo-api/internal/config"
)

// database/sql driver names registered by the blank imports.
const (
	sqliteDriverName   = "sqlite"
	postgresDriverName = "pgx"
	mysqlDriverName    = "mysql"
)

// sqlitePragmas make concurrent writers wait on the file lock instead of
// failing immediately with SQLITE_BUSY.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// dataSource resolves the database/sql driver name and DSN for cfg.
// An explicit DSN always wins over the individual connection fields.
func dataSource(cfg config.DBConfig) (string, string, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if cfg.DSN != "" {
			return sqliteDriverName, cfg.DSN, nil
		}
		return sqliteDriverName, sqliteDSN(cfg.Path), nil
	case config.DriverPostgres:
		if cfg.DSN != "" {
			return postgresDriverName, cfg.DSN, nil
		}
		port := cfg.Port
		if port == "" {
			port = "5432"
		}
		return postgresDriverName, fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, port), nil
	case config.DriverMySQL:
		if cfg.DSN != "" {
			return mysqlDriverName, cfg.DSN, nil
		}
		port := cfg.Port
		if port == "" {
			port = "3306"
		}
		mc := mysqldriver.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, port)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		return mysqlDriverName, mc.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN turns a file path into a modernc.org/sqlite DSN with pragmas.
// Transactions begin IMMEDIATE so a read-then-write transaction holds the
// write lock from the start and waits on busy_timeout; a deferred one fails
// with SQLITE_BUSY when another writer commits between its read and write.
// Times are written in SQLite's own format so they read back losslessly.
// ":memory:" is passed through untouched.
func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	query := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		query = append(query, "_pragma="+p)
	}
	query = append(query, "_txlock=immediate", "_time_format=sqlite")
	return "file:" + path + "?" + strings.Join(query, "&")
}
