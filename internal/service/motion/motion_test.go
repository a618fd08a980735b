package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geointel/internal/domain/intel"
)

func aircraft(id string, lat, lng, heading, speed float64) intel.GeoEntity {
	return intel.GeoEntity{
		ID: id, Kind: intel.KindAircraft,
		Position: intel.Position{Lat: lat, Lng: lng},
		Motion:   &intel.Motion{HeadingDeg: heading, SpeedKmh: speed},
	}
}

func TestStep_EastboundOneSecond(t *testing.T) {
	p := Step(intel.Position{Lat: 10, Lng: 20}, intel.Motion{HeadingDeg: 90, SpeedKmh: 360}, 1)

	assert.InDelta(t, 20.0009009, p.Lng, 1e-6)
	assert.InDelta(t, 10.0, p.Lat, 1e-9)
}

func TestStep_Northbound(t *testing.T) {
	p := Step(intel.Position{}, intel.Motion{HeadingDeg: 0, SpeedKmh: 3600 * 111}, 1)

	assert.InDelta(t, 1.0, p.Lat, 1e-9)
	assert.InDelta(t, 0.0, p.Lng, 1e-9)
}

func TestStep_StaysInDomain(t *testing.T) {
	p := Step(intel.Position{Lat: 89.9999, Lng: 179.9999}, intel.Motion{HeadingDeg: 45, SpeedKmh: 36000}, 1)
	assert.True(t, p.Valid())
}

func TestInterpolator_TickThenSnapToFix(t *testing.T) {
	ip := New()
	e := aircraft("a1", 10, 20, 90, 360)
	ip.Fix("aircraft", e)

	moved := ip.Advance(1)
	assert.Equal(t, map[string][]string{"aircraft": {"a1"}}, moved)

	pos, ok := ip.Position("aircraft", "a1")
	require.True(t, ok)
	assert.InDelta(t, 20+(360.0/3600)/111, pos.Lng, 1e-6)

	fix := aircraft("a1", 10.5, 20.5, 90, 360)
	ip.Fix("aircraft", fix)

	pos, _ = ip.Position("aircraft", "a1")
	assert.Equal(t, fix.Position, pos, "a fix replaces the extrapolated position exactly")
}

func TestInterpolator_ExcludesStaticEntities(t *testing.T) {
	ip := New()
	quake := intel.GeoEntity{ID: "q1", Kind: intel.KindSeismic, Position: intel.Position{Lat: 1, Lng: 1}}
	parked := aircraft("p1", 0, 0, 90, 0)

	ip.Fix("seismic", quake)
	ip.Fix("aircraft", parked)

	assert.Equal(t, 0, ip.Len())
	assert.Empty(t, ip.Advance(1))
}

func TestInterpolator_StoppedEntityLeavesInterpolation(t *testing.T) {
	ip := New()
	ip.Fix("aircraft", aircraft("a1", 0, 0, 90, 500))
	ip.Fix("aircraft", aircraft("a1", 0, 0, 90, 0))

	_, ok := ip.Position("aircraft", "a1")
	assert.False(t, ok)
}

func TestInterpolator_ForgetSource(t *testing.T) {
	ip := New()
	ip.Fix("aircraft", aircraft("a1", 0, 0, 90, 500))
	ip.Fix("vessel", aircraft("v1", 0, 0, 90, 30))

	ip.ForgetSource("aircraft")

	assert.Equal(t, 1, ip.Len())
	_, ok := ip.Position("vessel", "v1")
	assert.True(t, ok)
}
