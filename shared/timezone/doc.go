// Package timezone pins every wall-clock computation to the application
// timezone set by APP_TIMEZONE (an IANA name, UTC when unset or invalid).
//
// Booking quotas count appointments per local calendar day, so StartOfDay and
// DayBounds are the only place day boundaries are derived. Services never call
// time.Now directly; they read the injected Clock so tests can freeze time.
package timezone
