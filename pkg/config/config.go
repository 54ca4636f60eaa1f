// Package config loads server configuration from YAML and NOVELHUB_* env vars
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"novelhub/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g. NOVELHUB_DATABASE_HOST
const EnvPrefix = "NOVELHUB"

// Config holds all server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	Logging  logger.Config  `mapstructure:"logging" yaml:"logging"`
	Comments CommentsConfig `mapstructure:"comments" yaml:"comments"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	Content  ContentConfig  `mapstructure:"content" yaml:"content"`
}

// ServerConfig for the HTTP API
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Mode            string        `mapstructure:"mode" yaml:"mode"` // gin mode: release, debug, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	WriteRate       float64       `mapstructure:"write_rate" yaml:"write_rate"`   // per-user writes/sec, 0 disables
	WriteBurst      int           `mapstructure:"write_burst" yaml:"write_burst"` // per-user burst
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig picks the comment store backend
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // postgres or memory
}

// DatabaseConfig for PostgreSQL
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Database        string        `mapstructure:"database" yaml:"database"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MigrationsPath  string        `mapstructure:"migrations_path" yaml:"migrations_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// RedisConfig is optional; an empty Addr disables redis features
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// JWTConfig must match the identity service that issues tokens
type JWTConfig struct {
	Secret string `mapstructure:"secret" yaml:"secret"`
	Issuer string `mapstructure:"issuer" yaml:"issuer"`
}

// CommentsConfig holds thread limits
type CommentsConfig struct {
	MaxDepth           int  `mapstructure:"max_depth" yaml:"max_depth"`
	MaxBodyLength      int  `mapstructure:"max_body_length" yaml:"max_body_length"`
	MinReportReason    int  `mapstructure:"min_report_reason" yaml:"min_report_reason"`
	MaxReportReason    int  `mapstructure:"max_report_reason" yaml:"max_report_reason"`
	DefaultPageSize    int  `mapstructure:"default_page_size" yaml:"default_page_size"`
	MaxPageSize        int  `mapstructure:"max_page_size" yaml:"max_page_size"`
	DefaultRepliesSize int  `mapstructure:"default_replies_size" yaml:"default_replies_size"`
	MaxRepliesSize     int  `mapstructure:"max_replies_size" yaml:"max_replies_size"`
	AllowSelfVote      bool `mapstructure:"allow_self_vote" yaml:"allow_self_vote"`
}

// EventsConfig selects where domain events are delivered
type EventsConfig struct {
	Driver       string  `mapstructure:"driver" yaml:"driver"` // log, redis or tcp
	RedisChannel string  `mapstructure:"redis_channel" yaml:"redis_channel"`
	TCPAddr      string  `mapstructure:"tcp_addr" yaml:"tcp_addr"`
	Rate         float64 `mapstructure:"rate" yaml:"rate"`   // outgoing frames/sec
	Burst        int     `mapstructure:"burst" yaml:"burst"` // outgoing burst
}

// ContentConfig points at the catalog service that owns novels, chapters and news
type ContentConfig struct {
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"` // empty accepts every target
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ShutdownTimeout: 15 * time.Second,
			WriteRate:       2,
			WriteBurst:      10,
		},
		Store: StoreConfig{Driver: "postgres"},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "novelhub",
			Password:        "novelhub_dev_password",
			Database:        "novelhub_dev",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         5 * time.Second,
			MigrationsPath:  "./migrations",
			AutoMigrate:     true,
		},
		JWT: JWTConfig{
			Secret: "dev-secret-change-me",
			Issuer: "novelhub-identity",
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Comments: CommentsConfig{
			MaxDepth:           5,
			MaxBodyLength:      10000,
			MinReportReason:    10,
			MaxReportReason:    1000,
			DefaultPageSize:    20,
			MaxPageSize:        100,
			DefaultRepliesSize: 10,
			MaxRepliesSize:     50,
			AllowSelfVote:      true,
		},
		Events: EventsConfig{
			Driver:       "log",
			RedisChannel: "novelhub:comments",
			Rate:         100,
			Burst:        50,
		},
		Content: ContentConfig{
			Timeout:  3 * time.Second,
			CacheTTL: 10 * time.Minute,
		},
	}
}

// Load reads the YAML file at path (optional when empty) and applies env overrides
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]interface{}{
		"server.host":             d.Server.Host,
		"server.port":             d.Server.Port,
		"server.mode":             d.Server.Mode,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,
		"server.write_rate":       d.Server.WriteRate,
		"server.write_burst":      d.Server.WriteBurst,

		"store.driver": d.Store.Driver,

		"database.host":               d.Database.Host,
		"database.port":               d.Database.Port,
		"database.user":               d.Database.User,
		"database.password":           d.Database.Password,
		"database.database":           d.Database.Database,
		"database.sslmode":            d.Database.SSLMode,
		"database.max_open_conns":     d.Database.MaxOpenConns,
		"database.max_idle_conns":     d.Database.MaxIdleConns,
		"database.conn_max_lifetime":  d.Database.ConnMaxLifetime,
		"database.conn_max_idle_time": d.Database.ConnMaxIdleTime,
		"database.timeout":            d.Database.Timeout,
		"database.migrations_path":    d.Database.MigrationsPath,
		"database.auto_migrate":       d.Database.AutoMigrate,

		"redis.addr":     d.Redis.Addr,
		"redis.password": d.Redis.Password,
		"redis.db":       d.Redis.DB,

		"jwt.secret": d.JWT.Secret,
		"jwt.issuer": d.JWT.Issuer,

		"logging.level":  d.Logging.Level,
		"logging.format": d.Logging.Format,
		"logging.output": d.Logging.Output,

		"comments.max_depth":            d.Comments.MaxDepth,
		"comments.max_body_length":      d.Comments.MaxBodyLength,
		"comments.min_report_reason":    d.Comments.MinReportReason,
		"comments.max_report_reason":    d.Comments.MaxReportReason,
		"comments.default_page_size":    d.Comments.DefaultPageSize,
		"comments.max_page_size":        d.Comments.MaxPageSize,
		"comments.default_replies_size": d.Comments.DefaultRepliesSize,
		"comments.max_replies_size":     d.Comments.MaxRepliesSize,
		"comments.allow_self_vote":      d.Comments.AllowSelfVote,

		"events.driver":        d.Events.Driver,
		"events.redis_channel": d.Events.RedisChannel,
		"events.tcp_addr":      d.Events.TCPAddr,
		"events.rate":          d.Events.Rate,
		"events.burst":         d.Events.Burst,

		"content.base_url":  d.Content.BaseURL,
		"content.timeout":   d.Content.Timeout,
		"content.cache_ttl": d.Content.CacheTTL,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be postgres or memory, got %q", c.Store.Driver))
	}

	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}

	cc := c.Comments
	if cc.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("comments.max_depth must be at least 1, got %d", cc.MaxDepth))
	}
	if cc.MaxBodyLength < 1 {
		errs = append(errs, errors.New("comments.max_body_length must be positive"))
	}
	if cc.MinReportReason < 1 || cc.MaxReportReason < cc.MinReportReason {
		errs = append(errs, errors.New("comments report reason bounds are inconsistent"))
	}
	if cc.DefaultPageSize < 1 || cc.MaxPageSize < cc.DefaultPageSize {
		errs = append(errs, errors.New("comments page sizes are inconsistent"))
	}
	if cc.DefaultRepliesSize < 1 || cc.MaxRepliesSize < cc.DefaultRepliesSize {
		errs = append(errs, errors.New("comments replies sizes are inconsistent"))
	}

	switch c.Events.Driver {
	case "log":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("events.driver redis requires redis.addr"))
		}
	case "tcp":
		if c.Events.TCPAddr == "" {
			errs = append(errs, errors.New("events.driver tcp requires events.tcp_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.driver must be log, redis or tcp, got %q", c.Events.Driver))
	}

	return errors.Join(errs...)
}
