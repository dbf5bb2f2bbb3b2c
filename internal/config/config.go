package config // package config loads application configuration from environment variables

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.  Settings for optional subsystems live in their
// own loaders (cache, rate limit, lifecycle, messaging).
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	LogLevel       string // logrus level name
	CORSOrigins    []string
	AutoMigrate    bool // apply embedded migrations on startup
}

// LoadDotEnv reads a .env file into the process environment when one is
// present.  Variables already set take precedence.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logrus.WithError(err).WithField("path", p).Warn("could not load env file")
		}
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// stop the process.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		CORSOrigins:    envList("CORS_ORIGINS", "*"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the process logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, ok := parseInt(s)
	if !ok {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
