package config_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsys/config"
)

func validConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Booking.Policy = "strict"
	cfg.Booking.MaxPerDay = 3
	cfg.JWT.AccessSecret = "a"
	cfg.JWT.RefreshSecret = "r"
	cfg.Event.Sink = "log"

	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "buffered", mutate: func(c *config.Config) { c.Booking.Policy = "buffered"; c.Booking.Buffer = 2 }},
		{name: "upper case policy", mutate: func(c *config.Config) { c.Booking.Policy = "STRICT" }},
		{name: "padded buffered policy", mutate: func(c *config.Config) { c.Booking.Policy = " Buffered "; c.Booking.Buffer = -1 }, wantErr: "BOOKING_BUFFER"},
		{name: "unknown policy", mutate: func(c *config.Config) { c.Booking.Policy = "lenient" }, wantErr: "BOOKING_POLICY"},
		{name: "negative buffer", mutate: func(c *config.Config) { c.Booking.Policy = "buffered"; c.Booking.Buffer = -1 }, wantErr: "BOOKING_BUFFER"},
		{name: "zero quota", mutate: func(c *config.Config) { c.Booking.MaxPerDay = 0 }, wantErr: "BOOKING_MAX_PER_DAY"},
		{name: "missing secret", mutate: func(c *config.Config) { c.JWT.RefreshSecret = "" }, wantErr: "JWT_ACCESS_SECRET"},
		{name: "kafka without brokers", mutate: func(c *config.Config) { c.Event.Sink = "kafka" }, wantErr: "KAFKA_BROKERS"},
		{name: "unknown sink", mutate: func(c *config.Config) { c.Event.Sink = "smtp" }, wantErr: "EVENT_SINK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBooking_PolicyName(t *testing.T) {
	assert.Equal(t, "strict", config.Booking{Policy: "STRICT"}.PolicyName())
	assert.Equal(t, "buffered", config.Booking{Policy: "  Buffered\t"}.PolicyName())
	assert.Equal(t, "", config.Booking{}.PolicyName())
}

func TestLoad(t *testing.T) {
	t.Setenv("BOOKING_POLICY", "buffered")
	t.Setenv("BOOKING_BUFFER", "2")
	t.Setenv("DB_POSTGRES_WRITE_HOST", "db.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "buffered", cfg.Booking.Policy)
	assert.Equal(t, 2, cfg.Booking.Buffer)
	assert.Equal(t, 3, cfg.Booking.MaxPerDay, "default")
	assert.Equal(t, "db.internal", cfg.DB.Postgres.Write.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestPostgresEndpointDSN(t *testing.T) {
	endpoint := config.PostgresEndpoint{
		Host:     "db.internal",
		Port:     "5432",
		Username: "medsys",
		Password: "p@ss word",
		Name:     "booking",
		SSLMode:  "disable",
		Timezone: "Asia/Jakarta",
	}

	dsn := endpoint.DSN("test_", url.Values{"x-migrations-table": {"schema_migrations"}})

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)

	assert.Equal(t, "postgres", parsed.Scheme)
	assert.Equal(t, "db.internal:5432", parsed.Host)
	assert.Equal(t, "/test_booking", parsed.Path)

	password, _ := parsed.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
	assert.Equal(t, "Asia/Jakarta", parsed.Query().Get("timezone"))
	assert.Equal(t, "schema_migrations", parsed.Query().Get("x-migrations-table"))
}
