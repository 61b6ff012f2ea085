package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/env"
)

const (
	DefaultWompiAPIURL = "https://sandbox.wompi.co/v1"
	DefaultCurrency    = "COP"
	DefaultCourseID    = "curso-principal"
)

// Config is built once at startup and passed down explicitly.
type Config struct {
	AppHost string
	AppPort string
	AppEnv  string

	DatabaseURL     string `env:"DATABASE_URL" validate:"required"`
	DBMaxOpenConns  int    `env:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	DBMaxIdleConns  int    `env:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
	DBConnectRetry  int    `env:"DB_CONNECT_RETRIES" validate:"gte=1"`
	DBRetryInterval time.Duration

	Gateway GatewayConfig

	DefaultCurrency    string `env:"DEFAULT_CURRENCY" validate:"required,len=3"`
	CourseID           string `env:"COURSE_ID" validate:"required"`
	CoursePriceInCents int64  `env:"COURSE_PRICE_IN_CENTS" validate:"gte=0"`

	Cache   CacheConfig
	Metrics MetricsConfig
	Archive ArchiveConfig

	// AdminAPIKey guards the operator endpoints when set.
	AdminAPIKey string

	ReconcileInterval time.Duration
}

type GatewayConfig struct {
	APIURL       string        `env:"WOMPI_API_URL" validate:"required,url"`
	PublicKey    string        `env:"WOMPI_PUBLIC_KEY" validate:"required"`
	PrivateKey   string        `env:"WOMPI_PRIVATE_KEY" validate:"required"`
	IntegrityKey string        `env:"WOMPI_INTEGRITY_KEY" validate:"required"`
	EventsSecret string        `env:"WOMPI_EVENTS_SECRET"`
	Timeout      time.Duration `env:"GATEWAY_TIMEOUT" validate:"gt=0"`
}

type CacheConfig struct {
	Host     string
	Port     int `env:"CACHE_PORT" validate:"omitempty,gte=1,lte=65535"`
	Password string
}

func (c CacheConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MetricsConfig struct {
	User     string
	Password string
}

func (m MetricsConfig) Enabled() bool {
	return m.Password != ""
}

type ArchiveConfig struct {
	Enabled         bool
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID" validate:"required_if=Enabled true"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" validate:"required_if=Enabled true"`
	Region          string
	BucketName      string `env:"S3_BUCKET_NAME" validate:"required_if=Enabled true"`
	EndpointURL     string
}

// Load reads the environment (after env.SetupEnvFile) and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost: env.GetEnv("APP_HOST", "0.0.0.0"),
		AppPort: env.GetFirstEnv("3000", "PORT", "APP_PORT"),
		AppEnv:  env.GetEnv("APP_ENV", "prod"),

		DatabaseURL:     strings.TrimSpace(env.GetEnv("DATABASE_URL", "")),
		DBMaxOpenConns:  env.GetEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:  env.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnectRetry:  env.GetEnvInt("DB_CONNECT_RETRIES", 5),
		DBRetryInterval: env.GetEnvDuration("DB_RETRY_INTERVAL", 5*time.Second),

		Gateway: GatewayConfig{
			APIURL:       strings.TrimRight(strings.TrimSpace(env.GetEnv("WOMPI_API_URL", DefaultWompiAPIURL)), "/"),
			PublicKey:    strings.TrimSpace(env.GetEnv("WOMPI_PUBLIC_KEY", "")),
			PrivateKey:   strings.TrimSpace(env.GetEnv("WOMPI_PRIVATE_KEY", "")),
			IntegrityKey: strings.TrimSpace(env.GetEnv("WOMPI_INTEGRITY_KEY", "")),
			EventsSecret: strings.TrimSpace(env.GetEnv("WOMPI_EVENTS_SECRET", "")),
			Timeout:      env.GetEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		},

		DefaultCurrency:    strings.ToUpper(strings.TrimSpace(env.GetEnv("DEFAULT_CURRENCY", DefaultCurrency))),
		CourseID:           strings.TrimSpace(env.GetEnv("COURSE_ID", DefaultCourseID)),
		CoursePriceInCents: env.GetEnvInt64("COURSE_PRICE_IN_CENTS", 0),

		Cache: CacheConfig{
			Host:     strings.TrimSpace(env.GetEnv("CACHE_HOST", "")),
			Port:     env.GetEnvInt("CACHE_PORT", 6379),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Metrics: MetricsConfig{
			User:     env.GetEnv("METRICS_USER", "admin"),
			Password: env.GetEnv("METRICS_PASSWORD", ""),
		},
		Archive: ArchiveConfig{
			Enabled:         env.GetEnvBool("S3_ARCHIVE_ENABLED", false),
			AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          env.GetEnv("S3_REGION", "us-east-1"),
			BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
			EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		},

		AdminAPIKey: strings.TrimSpace(env.GetEnv("ADMIN_API_KEY", "")),

		ReconcileInterval: env.GetEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting by its env key.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Wrap(apperror.Config, "config_error", "invalid configuration", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			problems = append(problems, fe.Field()+" is required")
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return apperror.NewConfig("invalid configuration: " + strings.Join(problems, ", "))
}

func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}
