package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultPredictURL is the origin of the prediction service. Annotated
	// result images are served relative to this origin as well.
	DefaultPredictURL = "http://127.0.0.1:8000"

	// DefaultListenAddr is where the UI itself is served.
	DefaultListenAddr = ":3000"

	// DefaultSessionTTL is how long an idle browser session is kept before
	// the janitor evicts it.
	DefaultSessionTTL = 30 * time.Minute
)

// Config holds the process configuration, read once at startup.
type Config struct {
	ListenAddr string
	PredictURL string
	SessionTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; errors are ignored since the file is
// optional.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", DefaultListenAddr),
		PredictURL: getEnv("PREDICT_URL", DefaultPredictURL),
		SessionTTL: getDurationEnv("SESSION_TTL", DefaultSessionTTL),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
