// Package config reads settings from the environment and .env files.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Prefix is prepended to every variable read by FromEnv.
const Prefix = "MONGOGRAPH_"

// Config holds the settings of the serve and compile-sdl commands.
type Config struct {
	Addr           string
	HealthAddr     string
	MongoURI       string
	Database       string
	Models         []string
	Timeout        time.Duration
	MongoTimeout   time.Duration
	Pretty         bool
	GraphiQL       bool
	CORSOrigins    []string
	ForwardHeaders []string
	MaxBodyBytes   int64
	DefaultLimit   int
	MaxLimit       int
	OTLPEndpoint   string
	ServiceName    string
	LogLevel       string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:         ":8080",
		HealthAddr:   ":8081",
		MongoURI:     "mongodb://localhost:27017",
		Database:     "mongograph",
		Timeout:      10 * time.Second,
		MongoTimeout: 5 * time.Second,
		GraphiQL:     true,
		MaxBodyBytes: 1 << 20,
		DefaultLimit: 100,
		MaxLimit:     1000,
		ServiceName:  "mongograph",
		LogLevel:     "info",
	}
}

// FromEnv returns Default overridden by MONGOGRAPH_* variables.
func FromEnv() Config {
	c := Default()
	c.Addr = GetEnv(Prefix+"ADDR", c.Addr)
	c.HealthAddr = GetEnv(Prefix+"HEALTH_ADDR", c.HealthAddr)
	c.MongoURI = GetEnv(Prefix+"MONGO_URI", c.MongoURI)
	c.Database = GetEnv(Prefix+"DATABASE", c.Database)
	c.Models = GetEnvList(Prefix+"MODELS", c.Models)
	c.Timeout = GetEnvDuration(Prefix+"TIMEOUT", c.Timeout)
	c.MongoTimeout = GetEnvDuration(Prefix+"MONGO_TIMEOUT", c.MongoTimeout)
	c.Pretty = GetEnvBool(Prefix+"PRETTY", c.Pretty)
	c.GraphiQL = GetEnvBool(Prefix+"GRAPHIQL", c.GraphiQL)
	c.CORSOrigins = GetEnvList(Prefix+"CORS_ORIGINS", c.CORSOrigins)
	c.ForwardHeaders = GetEnvList(Prefix+"FORWARD_HEADERS", c.ForwardHeaders)
	c.MaxBodyBytes = int64(GetEnvInt(Prefix+"MAX_BODY_BYTES", int(c.MaxBodyBytes)))
	c.DefaultLimit = GetEnvInt(Prefix+"DEFAULT_LIMIT", c.DefaultLimit)
	c.MaxLimit = GetEnvInt(Prefix+"MAX_LIMIT", c.MaxLimit)
	c.OTLPEndpoint = GetEnv(Prefix+"OTLP_ENDPOINT", c.OTLPEndpoint)
	c.ServiceName = GetEnv(Prefix+"SERVICE_NAME", c.ServiceName)
	c.LogLevel = GetEnv("LOG_LEVEL", c.LogLevel)
	return c
}

// LoadEnv loads the given .env files, defaulting to ".env". Missing files
// are skipped and variables already set in the process win.
func LoadEnv(logger logrus.FieldLogger, files ...string) []string {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if !errors.Is(err, fs.ErrNotExist) && logger != nil {
				logger.WithError(err).Warnf("failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger != nil && len(loaded) > 0 {
		logger.Debugf("loaded env files: %s", strings.Join(loaded, ", "))
	}
	return loaded
}

// GetEnv gets an environment variable with a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvList splits a comma separated variable, dropping empty items.
func GetEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
