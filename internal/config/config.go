package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnv          = "development"
	defaultDBPath       = "./dev.db"
	defaultPort         = "8080"
	defaultLogMode      = "development"
	defaultRollupPolicy = "rate-uploaded"
	defaultTemplatesDir = "web/templates"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	Port          string
	DBPath        string
	LogMode       string
	RollupPolicy  string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	TemplatesDir  string
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. Variables already in the
// environment win over the file; a missing file is not an error.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	return Config{
		Env:           getenv("APP_ENV", defaultEnv),
		Port:          getenv("PORT", defaultPort),
		DBPath:        getenv("DB_PATH", defaultDBPath),
		LogMode:       getenv("LOG_MODE", defaultLogMode),
		RollupPolicy:  getenv("ROLLUP_POLICY", defaultRollupPolicy),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		TemplatesDir:  getenv("TEMPLATES_DIR", defaultTemplatesDir),
	}, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}

// Missing lists the unset variables the app can run without but should not.
func (c Config) Missing() []string {
	var out []string
	if c.AdminEmail == "" {
		out = append(out, "ADMIN_EMAIL")
	}
	if c.AdminPassword == "" {
		out = append(out, "ADMIN_PASSWORD")
	}
	if c.SessionSecret == "" {
		out = append(out, "SESSION_SECRET")
	}
	return out
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
