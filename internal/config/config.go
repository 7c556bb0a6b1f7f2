package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by VERACITY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("VERACITY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// RateLimitRPS returns the per-IP requests-per-second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// CascadeMaxDepth bounds how far score recomputation propagates through the
// claim graph in one run. Defaults to 10.
func CascadeMaxDepth() int {
	d, err := strconv.Atoi(os.Getenv("CASCADE_MAX_DEPTH"))
	if err != nil || d <= 0 {
		return 10
	}
	return d
}

// CascadeQueueSize is the buffer of the cascade worker queue.
// Defaults to 1024.
func CascadeQueueSize() int {
	n, err := strconv.Atoi(os.Getenv("CASCADE_QUEUE_SIZE"))
	if err != nil || n <= 0 {
		return 1024
	}
	return n
}

// CascadeMaxAttempts is how many times a failed cascade recompute is retried
// before it is recorded as failed. Defaults to 3.
func CascadeMaxAttempts() int {
	a, err := strconv.Atoi(os.Getenv("CASCADE_MAX_ATTEMPTS"))
	if err != nil || a <= 0 {
		return 3
	}
	return a
}

// CredibilityCron is the schedule for the source credibility batch.
// Defaults to 03:00 every day.
func CredibilityCron() string {
	c := os.Getenv("CREDIBILITY_CRON")
	if c == "" {
		return "0 3 * * *"
	}
	return c
}

// CounterResetCron is the schedule for the daily challenge counter reset.
// Defaults to midnight.
func CounterResetCron() string {
	c := os.Getenv("COUNTER_RESET_CRON")
	if c == "" {
		return "0 0 * * *"
	}
	return c
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
