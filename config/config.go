package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Values come from a .env file
// in the working directory and/or real environment variables, with
// environment variables taking precedence.
type Config struct {
	Environment string
	ServerPort  string

	DatabasePath string

	// JWTSecret signs bearer tokens. There is deliberately no default:
	// the server refuses to start without one.
	JWTSecret string
	TokenTTL  time.Duration

	// Courses is the recognized course enumeration, comma separated.
	// The first entry is the default course for new tasks.
	Courses string

	// AllowedOrigins is a comma separated list of CORS origins.
	AllowedOrigins string

	// WSRequireAuth gates the live event channel behind a bearer token.
	// The original system left the channel open to any peer; leaving
	// this false preserves that behavior.
	WSRequireAuth bool

	// APIBaseURL is used to build email verification links.
	APIBaseURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// LoadConfig reads configuration from path/.env and the environment.
// A missing .env file is fine; a missing JWT_SECRET is not.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_PATH", "./studysync.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("COURSES", "CS335,CS101,IT202")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("WS_REQUIRE_AUTH", false)
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", "")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	cfg := Config{
		Environment:    v.GetString("ENVIRONMENT"),
		ServerPort:     v.GetString("SERVER_PORT"),
		DatabasePath:   v.GetString("DATABASE_PATH"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		Courses:        v.GetString("COURSES"),
		AllowedOrigins: v.GetString("ALLOWED_ORIGINS"),
		WSRequireAuth:  v.GetBool("WS_REQUIRE_AUTH"),
		APIBaseURL:     v.GetString("API_BASE_URL"),
		SMTPHost:       v.GetString("SMTP_HOST"),
		SMTPPort:       v.GetString("SMTP_PORT"),
		SMTPUsername:   v.GetString("SMTP_USERNAME"),
		SMTPPassword:   v.GetString("SMTP_PASSWORD"),
		SMTPFrom:       v.GetString("SMTP_FROM"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must be set")
	}
	if len(cfg.CourseList()) == 0 {
		return Config{}, errors.New("COURSES must name at least one course")
	}

	return cfg, nil
}

// CourseList returns the configured course ids in order.
func (c Config) CourseList() []string {
	return splitCSV(c.Courses)
}

// OriginList returns the configured CORS origins.
func (c Config) OriginList() []string {
	return splitCSV(c.AllowedOrigins)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
