package config

import (
	"fmt"
	"strings"
	"time"
)

// EnvVars is populated from the environment by caarlos0/env.
type EnvVars struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppName  string `env:"APP_NAME" envDefault:"Truck Docs"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	SessionTimeout         time.Duration `env:"SESSION_TIMEOUT" envDefault:"7m"`
	SessionWarningTime     time.Duration `env:"SESSION_WARNING_TIME" envDefault:"1m"`
	SessionCheckInterval   time.Duration `env:"SESSION_CHECK_INTERVAL" envDefault:"10s"`
	ActivityThrottle       time.Duration `env:"SESSION_ACTIVITY_THROTTLE" envDefault:"1s"`
	RestoreActivityOnStart bool          `env:"SESSION_RESTORE_ACTIVITY" envDefault:"false"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisMaxRetries uint64        `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	StateTTL        time.Duration `env:"STATE_TTL" envDefault:"720h"`
	DocumentsDBPath string        `env:"DOCUMENTS_DB" envDefault:"./data/documents.db"`

	IdentityProvider   string `env:"IDENTITY_PROVIDER" envDefault:"local"`
	IdentitySeedFile   string `env:"IDENTITY_SEED_FILE" envDefault:"./data/users.yaml"`
	IdentitySigningKey string `env:"IDENTITY_SIGNING_KEY"`
	OIDCIssuer         string `env:"OIDC_ISSUER"`
	OIDCClientID       string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret   string `env:"OIDC_CLIENT_SECRET"`

	UploadEndpoint string        `env:"UPLOAD_ENDPOINT" envDefault:"https://api.imgbb.com/1/upload"`
	UploadAPIKey   string        `env:"IMGBB_API_KEY"`
	UploadMaxBytes int64         `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`
}

var _ EnvConfig = (*EnvVars)(nil)
var _ SessionConfig = (*EnvVars)(nil)
var _ StorageConfig = (*EnvVars)(nil)
var _ IdentityConfig = (*EnvVars)(nil)
var _ UploadConfig = (*EnvVars)(nil)

// Validate checks cross-field constraints the struct tags cannot express.
func (e *EnvVars) Validate() error {
	if e.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %v", e.SessionTimeout)
	}
	if e.SessionWarningTime < 0 || e.SessionWarningTime >= e.SessionTimeout {
		return fmt.Errorf("SESSION_WARNING_TIME must be within [0, SESSION_TIMEOUT), got %v", e.SessionWarningTime)
	}
	if e.SessionCheckInterval <= 0 {
		return fmt.Errorf("SESSION_CHECK_INTERVAL must be positive, got %v", e.SessionCheckInterval)
	}
	switch e.IdentityProvider {
	case "local":
	case "oidc":
		if e.OIDCIssuer == "" || e.OIDCClientID == "" {
			return fmt.Errorf("OIDC_ISSUER and OIDC_CLIENT_ID are required for the oidc identity provider")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", e.IdentityProvider)
	}
	return nil
}

func (e *EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = ":" + port
	}
	return port
}

func (e *EnvVars) GetAppName() string {
	return e.AppName
}

func (e *EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e *EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e *EnvVars) GetSessionTimeout() time.Duration {
	return e.SessionTimeout
}

func (e *EnvVars) GetSessionWarningTime() time.Duration {
	return e.SessionWarningTime
}

func (e *EnvVars) GetSessionCheckInterval() time.Duration {
	return e.SessionCheckInterval
}

func (e *EnvVars) GetActivityThrottle() time.Duration {
	return e.ActivityThrottle
}

// GetRestoreActivityOnStart keeps a stored lastActivity on mount instead of resetting it to now.
func (e *EnvVars) GetRestoreActivityOnStart() bool {
	return e.RestoreActivityOnStart
}

// GetRedisAddr returns an empty string when persisted state should stay in memory.
func (e *EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}

func (e *EnvVars) GetRedisPassword() string {
	return e.RedisPassword
}

func (e *EnvVars) GetRedisMaxRetries() uint64 {
	return e.RedisMaxRetries
}

func (e *EnvVars) GetStateTTL() time.Duration {
	return e.StateTTL
}

func (e *EnvVars) GetDocumentsDBPath() string {
	return e.DocumentsDBPath
}

func (e *EnvVars) GetIdentityProvider() string {
	return e.IdentityProvider
}

func (e *EnvVars) GetIdentitySeedFile() string {
	return e.IdentitySeedFile
}

func (e *EnvVars) GetIdentitySigningKey() string {
	return e.IdentitySigningKey
}

func (e *EnvVars) GetOIDCIssuer() string {
	return e.OIDCIssuer
}

func (e *EnvVars) GetOIDCClientID() string {
	return e.OIDCClientID
}

func (e *EnvVars) GetOIDCClientSecret() string {
	return e.OIDCClientSecret
}

func (e *EnvVars) GetUploadEndpoint() string {
	return e.UploadEndpoint
}

func (e *EnvVars) GetUploadAPIKey() string {
	return e.UploadAPIKey
}

func (e *EnvVars) GetUploadMaxBytes() int64 {
	return e.UploadMaxBytes
}

func (e *EnvVars) GetUploadTimeout() time.Duration {
	return e.UploadTimeout
}
