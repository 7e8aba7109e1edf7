// Package timezone resolves zone names and converts user-supplied local
// timestamps to UTC.
package timezone

import (
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/observability"
	apperrors "github.com/rileyafox/patient-portal/pkg/util"
)

// localLayout is the only accepted shape for booking timestamps: fixed
// width, seconds required, no offset. Offsets come from the zone name,
// never from the string.
const localLayout = "2006-01-02T15:04:05"

// fallbackZones covers common abbreviations the IANA database does not
// resolve as location names.
var fallbackZones = map[string]*time.Location{
	"EST": time.FixedZone("EST", -5*3600),
	"EDT": time.FixedZone("EDT", -4*3600),
	"CST": time.FixedZone("CST", -6*3600),
	"CDT": time.FixedZone("CDT", -5*3600),
	"MST": time.FixedZone("MST", -7*3600),
	"MDT": time.FixedZone("MDT", -6*3600),
	"PST": time.FixedZone("PST", -8*3600),
	"PDT": time.FixedZone("PDT", -7*3600),
	"GMT": time.UTC,
}

// Resolver maps timezone names to locations with a silent UTC fallback.
type Resolver struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewResolver constructs a resolver.
func NewResolver(logger *zap.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{logger: logger, metrics: metrics}
}

// Resolve returns the location for name. Unknown names fall back to UTC
// rather than failing: a bad timezone must never block a booking. The
// fallback is logged and counted so it stays observable.
func (r *Resolver) Resolve(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if loc, ok := fallbackZones[name]; ok {
		return loc
	}
	r.logger.Warn("unknown timezone, falling back to UTC", zap.String("tz", name))
	r.metrics.RecordEvent(observability.EventTimezoneFallback)
	return time.UTC
}

// ParseLocal parses a local ISO timestamp in the given zone and returns
// the local wall-clock time and its UTC projection. Malformed input is a
// client error, not a server one.
func (r *Resolver) ParseLocal(localISO, tzName string) (local time.Time, utc time.Time, err error) {
	loc := r.Resolve(tzName)
	local, err = time.ParseInLocation(localLayout, localISO, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(
			"invalid date/time, expected YYYY-MM-DDTHH:MM:SS",
			map[string]any{"shift_local_iso": localISO},
		)
	}
	return local, local.UTC(), nil
}

// Naive strips the location from a wall-clock time so it can be stored
// as a timestamp without timezone.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
