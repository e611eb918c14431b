package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"medsys/shared/constant"
)

// PostgresEndpoint is one side of the read/write split.
type PostgresEndpoint struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Username string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"NAME"`
	Timezone string `envconfig:"TIMEZONE"`
	SSLMode  string `envconfig:"SSL_MODE"`
}

// DSN renders a postgres:// URL for the endpoint, applying the database name
// prefix. extra is merged into the query string.
func (e PostgresEndpoint) DSN(prefix string, extra url.Values) string {
	query := url.Values{}
	if e.SSLMode != "" {
		query.Set("sslmode", e.SSLMode)
	}

	if e.Timezone != "" {
		query.Set("timezone", e.Timezone)
	}

	for key, values := range extra {
		query[key] = values
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(e.Username, e.Password),
		Host:     net.JoinHostPort(e.Host, e.Port),
		Path:     prefix + e.Name,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

type Config struct {
	Server struct {
		Env      string `envconfig:"ENV"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name     string `envconfig:"NAME"     default:"medsys"`
		Timezone string `envconfig:"TIMEZONE"`
		CORS     struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
		RateLimiter struct {
			Enable        bool `envconfig:"ENABLE"`
			MaxRequests   int  `envconfig:"MAX_REQUESTS"`
			WindowSeconds int  `envconfig:"WINDOW_SECONDS"`
		} `envconfig:"RATE_LIMITER"`
		APIKey string `envconfig:"API_KEY"`
	} `envconfig:"APP"`

	Booking Booking `envconfig:"BOOKING"`

	Event struct {
		// Sink is one of "kafka", "log" or "noop".
		Sink string `envconfig:"SINK" default:"log"`
	} `envconfig:"EVENT"`

	Cache struct {
		Redis struct {
			Primary struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
			} `envconfig:"PRIMARY"`
		} `envconfig:"REDIS"`
		TTL int `envconfig:"TTL" default:"60"`
	} `envconfig:"CACHE"`

	JWT struct {
		AccessSecret     string `envconfig:"ACCESS_SECRET"`
		RefreshSecret    string `envconfig:"REFRESH_SECRET"`
		AccessExpireMin  int    `envconfig:"ACCESS_EXPIRE_MIN"  default:"15"`
		RefreshExpireMin int    `envconfig:"REFRESH_EXPIRE_MIN" default:"1440"`
	} `envconfig:"JWT"`

	Kafka struct {
		Brokers       []string `envconfig:"BROKERS"`
		ConsumerGroup string   `envconfig:"CONSUMER_GROUP" default:"medsys-notifier"`
		SASL          struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
		Topic struct {
			AppointmentEvents string `envconfig:"APPOINTMENT_EVENTS" default:"appointment-events"`
		} `envconfig:"TOPIC"`
	} `envconfig:"KAFKA"`

	DB struct {
		Postgres struct {
			MaxRetry       int    `envconfig:"MAX_RETRY"`
			RetryWaitTime  int    `envconfig:"RETRY_WAIT_TIME"`
			MigrationTable string `envconfig:"MIGRATION_TABLE"`
			AutoMigrate    bool   `envconfig:"AUTO_MIGRATE"`
			Prefix         string `envconfig:"PREFIX"`
			Read           PostgresEndpoint `envconfig:"READ"`
			Write          PostgresEndpoint `envconfig:"WRITE"`
		} `envconfig:"POSTGRES"`
	} `envconfig:"DB"`

	External struct {
		Otel struct {
			Endpoint    string  `envconfig:"ENDPOINT"`
			SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1"`
		} `envconfig:"OTEL"`
		S3 struct {
			APIEndpoint     string `envconfig:"API_ENDPOINT"`
			AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
			SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
			BucketName      string `envconfig:"BUCKET_NAME"`
			PublicDomain    string `envconfig:"PUBLIC_DOMAIN"`
		} `envconfig:"S3"`
	} `envconfig:"EXTERNAL"`
}

var (
	conf        Config
	once        sync.Once
	initialized bool
)

// Load reads .env when present, then the process environment. It does not
// validate; entry points call Validate before serving.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	return &cfg, nil
}

type Booking struct {
	// Policy is either "strict" or "buffered", in any case.
	Policy    string `envconfig:"POLICY"      default:"strict"`
	Buffer    int    `envconfig:"BUFFER"      default:"1"`
	MaxPerDay int    `envconfig:"MAX_PER_DAY" default:"3"`
	SlotLock  struct {
		Enable     bool `envconfig:"ENABLE"`
		TTLSeconds int  `envconfig:"TTL_SECONDS" default:"5"`
	} `envconfig:"SLOT_LOCK"`
}

// PolicyName is the configured policy trimmed and lower-cased.
func (b Booking) PolicyName() string {
	return strings.ToLower(strings.TrimSpace(b.Policy))
}

// Validate rejects settings the booking engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	policy := c.Booking.PolicyName()

	switch policy {
	case constant.BookingPolicyStrict, constant.BookingPolicyBuffered:
	default:
		errs = append(errs, fmt.Errorf("BOOKING_POLICY must be %q or %q, got %q", constant.BookingPolicyStrict, constant.BookingPolicyBuffered, c.Booking.Policy))
	}

	if policy == constant.BookingPolicyBuffered && c.Booking.Buffer < 0 {
		errs = append(errs, errors.New("BOOKING_BUFFER must not be negative"))
	}

	if c.Booking.MaxPerDay < 1 {
		errs = append(errs, errors.New("BOOKING_MAX_PER_DAY must be at least 1"))
	}

	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required"))
	}

	switch c.Event.Sink {
	case constant.EventSinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when EVENT_SINK is kafka"))
		}
	case constant.EventSinkLog, constant.EventSinkNoop:
	default:
		errs = append(errs, fmt.Errorf("EVENT_SINK must be kafka, log or noop, got %q", c.Event.Sink))
	}

	return errors.Join(errs...)
}

// Init loads the process-wide configuration once.
func Init() error {
	var err error

	once.Do(func() {
		var cfg *Config

		cfg, err = Load()
		if err != nil {
			return
		}

		conf = *cfg
		initialized = true

		log.Info().
			Str("bookingPolicy", conf.Booking.Policy).
			Int("maxPerDay", conf.Booking.MaxPerDay).
			Str("eventSink", conf.Event.Sink).
			Msg("Configuration loaded")
	})

	return err
}

func Get() *Config {
	if !initialized {
		if err := Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize configuration")
		}
	}

	return &conf
}
