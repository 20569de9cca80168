package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	WixAPIKey          string        `env:"WIX_API_KEY" validate:"required_unless=DryRun true"`
	WixSiteID          string        `env:"WIX_SITE_ID" validate:"required_unless=DryRun true"`
	CatalogBaseURL     string        `env:"CATALOG_BASE_URL" validate:"required,url"`
	CatalogRPS         float64       `env:"CATALOG_RPS" validate:"gte=0"`
	CatalogMaxAttempts int           `env:"CATALOG_MAX_ATTEMPTS" validate:"gte=1,lte=10"`
	CatalogTimeout     time.Duration `env:"CATALOG_TIMEOUT" validate:"gt=0"`

	ScrapeTimeout  time.Duration `env:"SCRAPE_TIMEOUT" validate:"gt=0"`
	ScrapeCacheTTL time.Duration `env:"SCRAPE_CACHE_TTL" validate:"gte=0"`
	Workers        int           `env:"WORKERS" validate:"gte=1,lte=64"`
	RunTimeout     time.Duration `env:"RUN_TIMEOUT" validate:"gte=0"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	MetricsPort string `env:"METRICS_PORT" validate:"omitempty,numeric"`

	OpenAIKey       string `env:"OPENAI_API_KEY" validate:"required_if=DescribeMissing true"`
	DescribeMissing bool   `env:"DESCRIBE_MISSING"`

	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	// DryRun is set from the command line, never from the environment.
	DryRun bool `env:"-"`
}

func Load() *Config {
	// .env from the project root, then the working directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()
	return &Config{
		WixAPIKey:          os.Getenv("WIX_API_KEY"),
		WixSiteID:          os.Getenv("WIX_SITE_ID"),
		CatalogBaseURL:     getEnv("CATALOG_BASE_URL", "https://www.wixapis.com/stores/v1"),
		CatalogRPS:         getEnvFloat("CATALOG_RPS", 5),
		CatalogMaxAttempts: getEnvInt("CATALOG_MAX_ATTEMPTS", 3),
		CatalogTimeout:     getEnvDuration("CATALOG_TIMEOUT", 60*time.Second),
		ScrapeTimeout:      getEnvDuration("SCRAPE_TIMEOUT", 20*time.Second),
		ScrapeCacheTTL:     getEnvDuration("SCRAPE_CACHE_TTL", 24*time.Hour),
		Workers:            getEnvInt("WORKERS", 4),
		RunTimeout:         getEnvDuration("RUN_TIMEOUT", 0),
		RedisURL:           os.Getenv("REDIS_URL"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MetricsPort:        os.Getenv("METRICS_PORT"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		DescribeMissing:    getEnvBool("DESCRIBE_MISSING", false),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report env var names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
	return v
}

// Validate reports every invalid setting, named by its environment variable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("config: %s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), redact(fe)))
		} else {
			errs = append(errs, fmt.Errorf("config: %s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.Join(errs...)
}

func redact(fe validator.FieldError) any {
	if s, ok := fe.Value().(string); ok && s != "" {
		return "<set>"
	}
	return fe.Value()
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", k, "value", v, "default", d)
		return d
	}
	return n
}

func getEnvFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", k, "value", v, "default", d)
		return d
	}
	return f
}

func getEnvBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", k, "value", v, "default", d)
		return d
	}
	return b
}

// getEnvDuration accepts Go durations ("90s", "2m") or plain seconds.
func getEnvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("invalid duration in environment, using default", "key", k, "value", v, "default", d)
	return d
}
