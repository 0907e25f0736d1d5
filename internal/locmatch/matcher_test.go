package locmatch

import (
	"testing"

	"go.uber.org/zap"

	"github.com/qassimdata/mosquemeter/internal/refdata"
)

func testMatcher(coords []refdata.Coordinate) *Matcher {
	return NewMatcher(coords, zap.NewNop().Sugar())
}

func TestMatchNearest(t *testing.T) {
	coords := []refdata.Coordinate{
		{Lat: 24.7136, Lon: 46.6753}, // Riyadh
		{Lat: 26.3260, Lon: 43.9750}, // Buraydah
		{Lat: 21.4858, Lon: 39.1925}, // Jeddah
	}
	m := testMatcher(coords)

	// A meter just outside Buraydah.
	b, ok := m.Match(refdata.Meter{
		MeterID:    "M-100",
		Coordinate: refdata.Coordinate{Lat: 26.30, Lon: 44.00},
	})
	if !ok {
		t.Fatal("expected a binding")
	}
	if b.CoordinateKey != "26.326000,43.975000" {
		t.Errorf("bound to %s, want the Buraydah coordinate", b.CoordinateKey)
	}
	if b.DistanceMeters <= 0 || b.DistanceMeters > 10000 {
		t.Errorf("distance %f meters outside plausible range", b.DistanceMeters)
	}
}

func TestMatchExactTieKeepsFirst(t *testing.T) {
	// Two coordinates equidistant east and west of the meter, supplied in
	// their stable key order.
	coords := []refdata.Coordinate{
		{Lat: 25.0, Lon: 44.0},
		{Lat: 25.0, Lon: 46.0},
	}
	m := testMatcher(coords)

	b, ok := m.Match(refdata.Meter{
		MeterID:    "M-200",
		Coordinate: refdata.Coordinate{Lat: 25.0, Lon: 45.0},
	})
	if !ok {
		t.Fatal("expected a binding")
	}
	if b.CoordinateKey != "25.000000,44.000000" {
		t.Errorf("tie bound to %s, want the first coordinate in stable order", b.CoordinateKey)
	}
}

func TestMatchNoCoordinates(t *testing.T) {
	m := testMatcher(nil)
	if _, ok := m.Match(refdata.Meter{MeterID: "M-300"}); ok {
		t.Error("empty coordinate set should leave the meter unbound")
	}
}

func TestMatchAll(t *testing.T) {
	coords := []refdata.Coordinate{{Lat: 26.3260, Lon: 43.9750}}
	m := testMatcher(coords)

	meters := []refdata.Meter{
		{MeterID: "M-1", Coordinate: refdata.Coordinate{Lat: 26.3, Lon: 44.0}},
		{MeterID: "M-2", Coordinate: refdata.Coordinate{Lat: 26.4, Lon: 43.9}},
	}
	bindings := m.MatchAll(meters)
	if len(bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(bindings))
	}
	for i, b := range bindings {
		if b.MeterID != meters[i].MeterID {
			t.Errorf("binding %d for %s, want %s", i, b.MeterID, meters[i].MeterID)
		}
		if b.CoordinateKey != "26.326000,43.975000" {
			t.Errorf("binding %d bound to %s", i, b.CoordinateKey)
		}
	}
}
