// Package config provides centralized configuration for the data processor.
// Settings come from environment variables (optionally seeded from a .env
// file) with defaults, and are validated on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Application environments.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Transform TransformConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds settings for the local HTTP host.
type ServerConfig struct {
	// Host is the interface to bind to. The UI is local, so loopback by default.
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is 0 so the SSE stream stays open.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds file ingestion limits.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent caps simultaneous file decodes (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a decode waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"UPLOAD_MAX_WAIT" default:"30s"`
}

// TransformConfig locates the external text processor.
type TransformConfig struct {
	// Script is the processor executable. Relative paths are resolved
	// against the directory of the running binary.
	Script string `env:"TRANSFORM_SCRIPT" default:"textclean"`

	// Command is an optional interpreter (e.g. python3). When set the
	// resolved Script path is its only argument.
	Command string `env:"TRANSFORM_COMMAND"`

	// Timeout bounds a single run; 0 waits for the process indefinitely.
	Timeout time.Duration `env:"TRANSFORM_TIMEOUT" default:"0s"`

	// MaxConcurrent caps simultaneous processor runs (default: 2)
	MaxConcurrent int `env:"TRANSFORM_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long a run waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"TRANSFORM_MAX_WAIT" default:"30s"`
}

// SecurityConfig holds origin validation and throttling settings.
type SecurityConfig struct {
	// Env is production or development. Development also trusts DevUIOrigin.
	Env string `env:"APP_ENV" default:"production"`

	// UIOrigin overrides the origin the UI is served from.
	UIOrigin string `env:"UI_ORIGIN"`

	// DevUIOrigin is the dev server origin trusted in development.
	DevUIOrigin string `env:"DEV_UI_ORIGIN" default:"http://localhost:5123"`

	// RequestsPerMinute is the per-client rate limit; 0 disables it.
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers
	// are honoured. Empty means the connection address is always used.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsDev reports whether the application runs in development mode.
func (c *SecurityConfig) IsDev() bool {
	return c.Env == EnvDevelopment
}

// AllowedOrigins returns the origins whose messages are accepted on the
// process-boundary channel.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	if c.Security.UIOrigin != "" {
		origins = append(origins, c.Security.UIOrigin)
	} else {
		port := strconv.Itoa(c.Server.Port)
		switch c.Server.Host {
		case "", "0.0.0.0", "::", "127.0.0.1", "localhost":
			origins = append(origins,
				"http://127.0.0.1:"+port,
				"http://localhost:"+port,
			)
		default:
			origins = append(origins, "http://"+c.Server.Addr())
		}
	}
	if c.Security.IsDev() && c.Security.DevUIOrigin != "" {
		origins = append(origins, c.Security.DevUIOrigin)
	}
	return origins
}
