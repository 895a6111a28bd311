package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Login    LoginConfig    `yaml:"login"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoginConfig holds the scan-to-login protocol configuration
type LoginConfig struct {
	SceneTTLMinutes     int    `yaml:"scene_ttl_minutes"`     // default 30
	TokenTTLHours       int    `yaml:"token_ttl_hours"`       // default 168 (7 days)
	ReapIntervalSeconds int    `yaml:"reap_interval_seconds"` // default 60
	QRBaseURL           string `yaml:"qr_base_url"`
	ReplayProtection    bool   `yaml:"replay_protection"` // requires redis
}

// SceneTTL returns the session/scene lifetime.
func (l *LoginConfig) SceneTTL() time.Duration {
	if l.SceneTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(l.SceneTTLMinutes) * time.Minute
}

// TokenTTL returns the bearer token lifetime.
func (l *LoginConfig) TokenTTL() time.Duration {
	if l.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(l.TokenTTLHours) * time.Hour
}

// ReapInterval returns the reaper sweep interval.
func (l *LoginConfig) ReapInterval() time.Duration {
	if l.ReapIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(l.ReapIntervalSeconds) * time.Second
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis-specific configuration. Redis is optional; it only
// backs the seen-nonce replay cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MetricsConfig holds the prometheus listener configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format
func (d *DatabaseConfig) URL() string {
	userInfo := url.UserPassword(d.User, d.Password)

	// net.JoinHostPort wraps IPv6 addresses in brackets
	host := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
