package trail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geointel/internal/domain/intel"
)

var t0 = time.Date(2026, 7, 4, 9, 0, 0, 0, time.UTC)

func mover(id string) intel.GeoEntity {
	return intel.GeoEntity{ID: id, Kind: intel.KindAircraft, Motion: &intel.Motion{HeadingDeg: 0, SpeedKmh: 700}}
}

func move(id string, dLat, dLng float64) intel.Move {
	return intel.Move{ID: id, From: intel.Position{Lat: 10, Lng: 10}, To: intel.Position{Lat: 10 + dLat, Lng: 10 + dLng}}
}

func TestReact_DisplacementWindow(t *testing.T) {
	tests := []struct {
		name     string
		dLat     float64
		dLng     float64
		expected bool
	}{
		{"no-op churn", 0.004, 0.004, false},
		{"exactly lower bound", 0.01, 0, false},
		{"just above lower bound", 0.006, 0.005, true},
		{"typical poll", 0.1, 0.05, true},
		{"exactly upper bound", 5, 5, false},
		{"hemisphere jump", -40, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(DefaultTTL)
			_, ok := m.React("aircraft", mover("a"), move("a", tt.dLat, tt.dLng), t0)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestReact_IgnoresStaticEntities(t *testing.T) {
	m := New(DefaultTTL)
	quake := intel.GeoEntity{ID: "q", Kind: intel.KindSeismic}

	_, ok := m.React("seismic", quake, move("q", 0.5, 0.5), t0)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestSweep_TTLBoundary(t *testing.T) {
	m := New(DefaultTTL)
	seg, ok := m.React("aircraft", mover("a"), move("a", 0.2, 0.2), t0)
	require.True(t, ok)
	assert.Equal(t, 20*time.Second, seg.TTL)

	assert.Empty(t, m.Sweep(t0.Add(19999*time.Millisecond)))
	assert.Len(t, m.Active(t0.Add(19999*time.Millisecond)), 1)

	expired := m.Sweep(t0.Add(20001 * time.Millisecond))
	assert.Len(t, expired, 1)
	assert.Empty(t, m.Active(t0.Add(20001*time.Millisecond)))
	assert.Equal(t, 0, m.Len())
}

func TestSweep_ExpiresInOrder(t *testing.T) {
	m := New(DefaultTTL)
	m.React("aircraft", mover("a"), move("a", 0.2, 0), t0)
	m.React("aircraft", mover("b"), move("b", 0.2, 0), t0.Add(5*time.Second))
	m.React("aircraft", mover("c"), move("c", 0.2, 0), t0.Add(10*time.Second))

	expired := m.Sweep(t0.Add(26 * time.Second))

	require.Len(t, expired, 2)
	assert.Equal(t, "a", expired[0].EntityID)
	assert.Equal(t, "b", expired[1].EntityID)
	assert.Equal(t, 1, m.Len())
}

func TestActive_HidesExpiredBeforeSweep(t *testing.T) {
	m := New(DefaultTTL)
	m.React("aircraft", mover("a"), move("a", 0.2, 0), t0)

	assert.Empty(t, m.Active(t0.Add(DefaultTTL)))
	assert.Equal(t, 1, m.Len())
}

func TestDropSource(t *testing.T) {
	m := New(DefaultTTL)
	m.React("aircraft", mover("a"), move("a", 0.2, 0), t0)
	m.React("vessel", mover("v"), move("v", 0.2, 0), t0.Add(time.Second))
	m.React("aircraft", mover("b"), move("b", 0.2, 0), t0.Add(2*time.Second))

	assert.Equal(t, 2, m.DropSource("aircraft"))

	active := m.Active(t0.Add(3 * time.Second))
	require.Len(t, active, 1)
	assert.Equal(t, "vessel", active[0].SourceID)

	expired := m.Sweep(t0.Add(time.Minute))
	assert.Len(t, expired, 1)
}
