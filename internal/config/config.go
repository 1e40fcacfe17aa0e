// Package config loads the API server configuration from flags, environment
// variables, an optional config file and built-in defaults, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config keys.
const (
	KeyConfigFile   = "config"
	KeyHost         = "host"
	KeyPort         = "port"
	KeyDBDriver     = "db.driver"
	KeyDBPath       = "db.path"
	KeyDBDSN        = "db.dsn"
	KeyDBHost       = "db.host"
	KeyDBPort       = "db.port"
	KeyDBUser       = "db.user"
	KeyDBPassword   = "db.password"
	KeyDBName       = "db.name"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
	KeyCORSOrigins  = "cors.allowed_origins"
	defaultHost     = "0.0.0.0"
	defaultPort     = 8000
	defaultDBPath   = "todos.db"
	defaultLogLevel = "info"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

var defaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// envBindings maps config keys to the environment variables that set them.
// The BLUEPRINT_DB_* names are kept for existing deployments.
var envBindings = map[string]string{
	KeyHost:        "HOST",
	KeyPort:        "PORT",
	KeyDBDriver:    "DB_DRIVER",
	KeyDBPath:      "DB_PATH",
	KeyDBDSN:       "DB_DSN",
	KeyDBHost:      "BLUEPRINT_DB_HOST",
	KeyDBPort:      "BLUEPRINT_DB_PORT",
	KeyDBUser:      "BLUEPRINT_DB_USERNAME",
	KeyDBPassword:  "BLUEPRINT_DB_PASSWORD",
	KeyDBName:      "BLUEPRINT_DB_DATABASE",
	KeyLogLevel:    "LOG_LEVEL",
	KeyLogFormat:   "LOG_FORMAT",
	KeyCORSOrigins: "CORS_ALLOWED_ORIGINS",
}

type Config struct {
	Host string
	Port int
	DB   DBConfig
	Log  LogConfig
	CORS CORSConfig
}

// DBConfig selects and addresses the database. For sqlite only Path (or DSN)
// is used; the server drivers use DSN or the Host/Port/User/Password/Name parts.
type DBConfig struct {
	Driver   string
	Path     string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyHost, defaultHost)
	v.SetDefault(KeyPort, defaultPort)
	v.SetDefault(KeyDBDriver, DriverSQLite)
	v.SetDefault(KeyDBPath, defaultDBPath)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyCORSOrigins, defaultCORSOrigins)

	for key, env := range envBindings {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(key, env)
	}
	return v
}

// BindFlags registers the command-line flags on fs and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String(KeyHost, defaultHost, "interface to listen on")
	fs.Int(KeyPort, defaultPort, "port to listen on")
	fs.String(KeyConfigFile, "", "path to a config file (yaml, toml or json)")

	for _, name := range []string{KeyHost, KeyPort, KeyConfigFile} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file named by the "config" key and
// assembles a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Host: v.GetString(KeyHost),
		Port: v.GetInt(KeyPort),
		DB: DBConfig{
			Driver:   strings.ToLower(strings.TrimSpace(v.GetString(KeyDBDriver))),
			Path:     v.GetString(KeyDBPath),
			DSN:      v.GetString(KeyDBDSN),
			Host:     v.GetString(KeyDBHost),
			Port:     v.GetString(KeyDBPort),
			User:     v.GetString(KeyDBUser),
			Password: v.GetString(KeyDBPassword),
			Name:     v.GetString(KeyDBName),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		CORS: CORSConfig{
			AllowedOrigins: stringList(v.Get(KeyCORSOrigins)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to start the server.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" && c.DB.DSN == "" {
			errs = append(errs, errors.New("sqlite requires db.path or db.dsn"))
		}
	case DriverPostgres, DriverMySQL:
		if c.DB.DSN == "" && (c.DB.Host == "" || c.DB.Name == "") {
			errs = append(errs, fmt.Errorf("%s requires db.dsn or db.host and db.name", c.DB.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported db.driver %q", c.DB.Driver))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// stringList accepts either a list value (config file, defaults) or a
// comma-separated string (environment).
func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
