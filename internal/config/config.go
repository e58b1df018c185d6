package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	DataDir string

	// KafkaBrokers empty means the console analytics sink is used.
	KafkaBrokers   []string
	AnalyticsTopic string

	// AutoProgressInterval is how often stored orders are inspected by
	// the simulated progression, not the per-order cooldown.
	AutoProgressInterval time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "9000"),
		DataDir:              getEnv("DATA_DIR", "./data"),
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "")),
		AnalyticsTopic:       getEnv("ANALYTICS_TOPIC", "order_events"),
		AutoProgressInterval: getDuration("AUTO_PROGRESS_INTERVAL", 12*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
