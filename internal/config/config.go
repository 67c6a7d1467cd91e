package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OAuthProvider holds the client credentials for one external provider.
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Mail holds SES sender settings.
type Mail struct {
	Region          string
	From            string
	AccessKeyID     string
	SecretAccessKey string
}

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string
	AppURL      string
	ViewURL     string

	DatabaseURL string
	DBSchema    string

	JWTIssuer      string
	JWTAudience    string
	JWTKey         string
	AccessTokenTTL time.Duration

	Google   OAuthProvider
	Github   OAuthProvider
	Facebook OAuthProvider

	Mail Mail

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "authentication"),
		AppURL:      getEnv("APP_URL", "http://localhost:8080"),
		ViewURL:     getEnv("VIEW_URL", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBSchema:    getEnv("DB_SCHEMA", "identity"),

		JWTIssuer:      getEnv("JWT_ISSUER", "authentication"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "authentication"),
		JWTKey:         os.Getenv("JWT_KEY"),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		Google:   providerEnv("GOOGLE"),
		Github:   providerEnv("GITHUB"),
		Facebook: providerEnv("FACEBOOK"),

		Mail: Mail{
			Region:          getEnv("SES_REGION", "eu-west-1"),
			From:            os.Getenv("SES_FROM"),
			AccessKeyID:     os.Getenv("SES_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("SES_SECRET_ACCESS_KEY"),
		},

		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTKey == "" {
		return Config{}, fmt.Errorf("JWT_KEY is required")
	}

	return cfg, nil
}

func providerEnv(prefix string) OAuthProvider {
	return OAuthProvider{
		ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
		RedirectURI:  os.Getenv(prefix + "_REDIRECT_URI"),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err == nil {
			return b
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
