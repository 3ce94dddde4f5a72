// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
	"github.com/tasknest/tasknest-meeting-service/internal/logging"
	"github.com/tasknest/tasknest-meeting-service/pkg/constants"
	"github.com/tasknest/tasknest-meeting-service/pkg/utils"
)

// Storage backends selectable with STORE_BACKEND.
const (
	storeBackendNATS     = "nats"
	storeBackendPostgres = "postgres"
	storeBackendSQLite   = "sqlite"
)

// flags are the command line flags for the meeting service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the meeting service.
type environment struct {
	Port                   string
	NatsURL                string
	NatsTimeout            time.Duration
	NatsMaxReconnect       int
	NatsReconnectWait      time.Duration
	StoreBackend           string
	DatabaseURL            string
	SkipEtagValidation     bool
	OccurrenceWriteWorkers int
	JWT                    jwtConfig
	Callables              callablesConfig
}

// jwtConfig holds the inbound token validation settings.
type jwtConfig struct {
	JWKSURL                 string
	Audience                string
	MockLocalPrincipal      string
	MockLocalOrganizationID string
	MockLocalRoles          []models.RoleTag
}

// callablesConfig holds the remote callables configuration
type callablesConfig struct {
	BaseURL     string
	ClientID    string
	PrivateKey  string
	Auth0Domain string
	Audience    string
	Timeout     time.Duration
}

// Enabled reports whether enough settings are present to reach the callables.
func (c callablesConfig) Enabled() bool {
	return c.BaseURL != "" && c.PrivateKey != ""
}

// parseFlags parses command line flags for the meeting service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// loadDotEnv loads a local .env file when one exists. Variables already set
// in the process environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.With(logging.ErrKey, err).Warn("could not load .env file")
	}
}

// parseEnv parses environment variables for the meeting service
func parseEnv() (environment, error) {
	env := environment{
		Port:                   getEnv("PORT", "8080"),
		NatsURL:                getEnv("NATS_URL", "nats://localhost:4222"),
		NatsTimeout:            getDuration("NATS_TIMEOUT", 10*time.Second),
		NatsMaxReconnect:       getInt("NATS_MAX_RECONNECT", 3),
		NatsReconnectWait:      getDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		StoreBackend:           strings.ToLower(getEnv("STORE_BACKEND", storeBackendNATS)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		SkipEtagValidation:     os.Getenv("SKIP_ETAG_VALIDATION") == "true",
		OccurrenceWriteWorkers: getInt("OCCURRENCE_WRITE_WORKERS", constants.DefaultOccurrenceWriteWorkers),
		JWT: jwtConfig{
			JWKSURL:                 os.Getenv("JWKS_URL"),
			Audience:                os.Getenv("JWT_AUDIENCE"),
			MockLocalPrincipal:      os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL"),
			MockLocalOrganizationID: os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_ORGANIZATION"),
			MockLocalRoles:          parseRoles(os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_ROLES")),
		},
		Callables: callablesConfig{
			BaseURL:     os.Getenv("CALLABLES_BASE_URL"),
			ClientID:    os.Getenv("CALLABLES_CLIENT_ID"),
			PrivateKey:  os.Getenv("CALLABLES_CLIENT_PRIVATE_KEY"),
			Auth0Domain: os.Getenv("CALLABLES_AUTH0_DOMAIN"),
			Audience:    os.Getenv("CALLABLES_AUDIENCE"),
			Timeout:     getDuration("CALLABLES_TIMEOUT", 30*time.Second),
		},
	}

	switch env.StoreBackend {
	case storeBackendNATS:
	case storeBackendPostgres, storeBackendSQLite:
		if env.DatabaseURL == "" {
			return env, errors.New("DATABASE_URL is required when STORE_BACKEND is " + env.StoreBackend)
		}
	default:
		return env, errors.New("unsupported STORE_BACKEND " + strconv.Quote(env.StoreBackend))
	}

	return env, nil
}

func getEnv(key, fallback string) string {
	return utils.Coalesce(os.Getenv(key), fallback)
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		slog.Warn("invalid integer environment variable, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		slog.Warn("invalid duration environment variable, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return value
}

// parseRoles splits a comma separated role list.
func parseRoles(raw string) []models.RoleTag {
	var roles []models.RoleTag
	for _, part := range strings.Split(raw, ",") {
		if role := strings.TrimSpace(part); role != "" {
			roles = append(roles, models.RoleTag(role))
		}
	}
	return roles
}
