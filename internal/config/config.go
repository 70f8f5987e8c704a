package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	StorageConfig
	IdentityConfig
	UploadConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SessionConfig interface {
	GetSessionTimeout() time.Duration
	GetSessionWarningTime() time.Duration
	GetSessionCheckInterval() time.Duration
	GetActivityThrottle() time.Duration
	GetRestoreActivityOnStart() bool
}

type StorageConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisMaxRetries() uint64
	GetStateTTL() time.Duration
	GetDocumentsDBPath() string
}

type IdentityConfig interface {
	GetIdentityProvider() string
	GetIdentitySeedFile() string
	GetIdentitySigningKey() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
}

type UploadConfig interface {
	GetUploadEndpoint() string
	GetUploadAPIKey() string
	GetUploadMaxBytes() int64
	GetUploadTimeout() time.Duration
}

type mainConfig struct {
	*EnvVars
	Cors
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	vars := &EnvVars{}
	if err := env.Parse(vars); err != nil {
		return nil, fmt.Errorf("[config Load] env.Parse: %w", err)
	}
	if err := vars.Validate(); err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	return mainConfig{EnvVars: vars, Cors: Cors{origins: parseOrigins(vars.AllowedOrigins)}}, nil
}
