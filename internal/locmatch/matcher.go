// Package locmatch binds each meter to its nearest prayer-schedule
// coordinate. The reference coordinate set is tiny (tens to low hundreds),
// so a linear scan per meter is the whole algorithm.
package locmatch

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"github.com/qassimdata/mosquemeter/internal/refdata"
)

// Binding is the stored association between a meter and its nearest
// schedule coordinate. Exactly one binding exists per matched meter;
// bindings are recomputed whenever either reference dataset changes.
type Binding struct {
	MeterID        string    `gorm:"primaryKey;column:meter_id"`
	Latitude       float64   `gorm:"column:latitude"`
	Longitude      float64   `gorm:"column:longitude"`
	CoordinateKey  string    `gorm:"column:coordinate_key;index"`
	DistanceMeters float64   `gorm:"column:distance_meters"`
	ComputedAt     time.Time `gorm:"column:computed_at"`
}

// TableName specifies the table name for Binding
func (Binding) TableName() string {
	return "meter_location_bindings"
}

// Matcher finds the nearest schedule coordinate for a meter.
type Matcher struct {
	coords []refdata.Coordinate
	logger *zap.SugaredLogger
}

// NewMatcher creates a Matcher over the schedule's distinct coordinates.
// The slice must already be in stable (lexicographic key) order; ties are
// broken by keeping the first coordinate encountered in that order.
func NewMatcher(coords []refdata.Coordinate, logger *zap.SugaredLogger) *Matcher {
	return &Matcher{coords: coords, logger: logger}
}

// Match returns the binding for a single meter. The second return is false
// when there are no schedule coordinates at all; such meters stay unbound
// and are later excluded from period aggregation but not quality scoring.
func (m *Matcher) Match(meter refdata.Meter) (Binding, bool) {
	if len(m.coords) == 0 {
		return Binding{}, false
	}

	meterPoint := orb.Point{meter.Lon, meter.Lat}
	best := m.coords[0]
	bestDist := geo.Distance(meterPoint, orb.Point{best.Lon, best.Lat})

	for _, c := range m.coords[1:] {
		d := geo.Distance(meterPoint, orb.Point{c.Lon, c.Lat})
		// Strictly-less keeps the earlier coordinate on exact ties.
		if d < bestDist {
			best = c
			bestDist = d
		}
	}

	return Binding{
		MeterID:        meter.MeterID,
		Latitude:       best.Lat,
		Longitude:      best.Lon,
		CoordinateKey:  best.Key(),
		DistanceMeters: bestDist,
		ComputedAt:     time.Now().UTC(),
	}, true
}

// MatchAll computes bindings for every meter in the directory.
func (m *Matcher) MatchAll(meters []refdata.Meter) []Binding {
	bindings := make([]Binding, 0, len(meters))
	unmatched := 0
	for _, meter := range meters {
		b, ok := m.Match(meter)
		if !ok {
			unmatched++
			continue
		}
		bindings = append(bindings, b)
	}
	if unmatched > 0 {
		m.logger.Warnf("%d meters could not be bound to a schedule coordinate", unmatched)
	}
	return bindings
}
