package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	MongoDBURI      string
	MongoDBPassword string
	MongoDBDatabase string

	Timezone string
	Location *time.Location

	CalendarID            string
	GoogleCredentialsFile string
	CalendarEventLocation string

	NatsURL string

	JWTSecret string
	JWKSURL   string

	// UserDirectory selects where account profiles are read from: "mongo" or "supabase".
	UserDirectory   string
	SupabaseURL     string
	SupabaseAnonKey string

	CORSOrigins        []string
	RateLimitPerMinute int

	CompensateOnFailure bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                  getEnvWithDefault("PORT", "8080"),
		Environment:           getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:              getEnvWithDefault("LOG_LEVEL", "info"),
		MongoDBURI:            os.Getenv("MONGODB_URI"),
		MongoDBPassword:       os.Getenv("MONGODB_PASSWORD"),
		MongoDBDatabase:       getEnvWithDefault("MONGODB_DATABASE", "agenda"),
		Timezone:              getEnvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		CalendarID:            os.Getenv("CALENDAR_ID"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		CalendarEventLocation: os.Getenv("CALENDAR_EVENT_LOCATION"),
		NatsURL:               os.Getenv("NATS_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWKSURL:               os.Getenv("JWKS_URL"),
		UserDirectory:         strings.ToLower(getEnvWithDefault("USER_DIRECTORY", "mongo")),
		SupabaseURL:           os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:       os.Getenv("SUPABASE_URL_ANON_KEY"),
		CORSOrigins:           splitList(getEnvWithDefault("CORS_ORIGINS", "http://localhost:3000")),
	}

	var err error
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnvWithDefault("RATE_LIMIT_PER_MINUTE", "30")); err != nil || cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be a positive integer")
	}
	if cfg.CompensateOnFailure, err = strconv.ParseBool(getEnvWithDefault("BOOKING_COMPENSATE_ON_FAILURE", "false")); err != nil {
		return nil, fmt.Errorf("BOOKING_COMPENSATE_ON_FAILURE must be a boolean: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("JWT_SECRET or JWKS_URL is required")
	}
	switch cfg.UserDirectory {
	case "mongo":
	case "supabase":
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("SUPABASE_URL is required")
		}
		if cfg.SupabaseAnonKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
		}
	default:
		return nil, fmt.Errorf("USER_DIRECTORY must be mongo or supabase, got %q", cfg.UserDirectory)
	}
	if cfg.CalendarID != "" && cfg.GoogleCredentialsFile == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required when CALENDAR_ID is set")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
