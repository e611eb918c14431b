package timezone

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"medsys/config"
)

var appLocation atomic.Pointer[time.Location]

func init() {
	name := config.Get().App.Timezone
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC as default")

		name = "UTC"
	}

	if err := SetLocation(name); err != nil {
		log.Error().Err(err).Str("timezone", name).Msg("Falling back to UTC; use an IANA name such as 'Asia/Jakarta'")

		appLocation.Store(time.UTC)

		return
	}

	log.Info().Str("timezone", name).Msg("Application timezone initialized")
}

// SetLocation switches the application timezone. Day boundaries for booking
// quotas move with it.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", name, err)
	}

	appLocation.Store(loc)

	return nil
}

// GetLocation returns the application timezone, UTC until one is set.
func GetLocation() *time.Location {
	if loc := appLocation.Load(); loc != nil {
		return loc
	}

	return time.UTC
}

func Now() time.Time {
	return time.Now().In(GetLocation())
}

func ToAppTime(t time.Time) time.Time {
	return t.In(GetLocation())
}

// Parse interprets values without an offset as application local time.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, GetLocation())
}

func Format(t time.Time, layout string) string {
	return ToAppTime(t).Format(layout)
}

// StartOfDay returns local midnight, in the application timezone, of the day containing t.
func StartOfDay(t time.Time) time.Time {
	local := ToAppTime(t)
	year, month, day := local.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, local.Location())
}

// DayBounds returns the half-open [midnight, next midnight) range of the day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)

	return start, start.AddDate(0, 0, 1)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return Now()
}

// NewClock returns a Clock reading the wall clock in the application timezone.
func NewClock() Clock {
	return systemClock{}
}
