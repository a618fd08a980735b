package intel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_MissingPosition(t *testing.T) {
	_, err := Normalize(KindNews, Record{ID: "a", Lat: Float(1)})
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestNormalize_InvalidPosition(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"lat too high", 90.5, 0},
		{"lng too low", 0, -180.1},
		{"nan", math.NaN(), 0},
		{"inf", 0, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(KindSeismic, Record{ID: "x", Lat: Float(tt.lat), Lng: Float(tt.lng)})
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestNormalize_DerivesIDFromCoordinates(t *testing.T) {
	e, err := Normalize(KindSeismic, Record{Lat: Float(35.68951), Lng: Float(139.69171)})
	require.NoError(t, err)
	assert.Equal(t, "seismic:35.690,139.692", e.ID)

	again, err := Normalize(KindSeismic, Record{Lat: Float(35.6895), Lng: Float(139.6917)})
	require.NoError(t, err)
	assert.Equal(t, e.ID, again.ID, "derived id must be stable across polls")
}

func TestDeriveID_FoldsNegativeZero(t *testing.T) {
	north := DeriveID(KindSeismic, Position{Lat: 0.0004, Lng: 1})
	south := DeriveID(KindSeismic, Position{Lat: -0.0004, Lng: 1})

	assert.Equal(t, "seismic:0.000,1.000", north)
	assert.Equal(t, north, south)
	assert.Equal(t, "seismic:-1.500,0.000", DeriveID(KindSeismic, Position{Lat: -1.5, Lng: -0.0001}))
}

func TestNormalize_Motion(t *testing.T) {
	e, err := Normalize(KindAircraft, Record{
		ID: "abc123", Lat: Float(51), Lng: Float(0),
		HeadingDeg: Float(-90), SpeedKmh: Float(800),
	})
	require.NoError(t, err)
	require.NotNil(t, e.Motion)
	assert.Equal(t, 270.0, e.Motion.HeadingDeg)
	assert.True(t, e.Motion.Moving())

	_, err = Normalize(KindAircraft, Record{
		ID: "neg", Lat: Float(51), Lng: Float(0),
		HeadingDeg: Float(10), SpeedKmh: Float(-5),
	})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	static, err := Normalize(KindVessel, Record{ID: "v", Lat: Float(10), Lng: Float(10), SpeedKmh: Float(20)})
	require.NoError(t, err)
	assert.Nil(t, static.Motion, "motion needs both heading and speed")
}

func TestNormalize_CopiesAttributesAndDerivesContinent(t *testing.T) {
	attrs := map[string]string{AttrCountry: "France", AttrTitle: "Strike"}
	e, err := Normalize(KindNews, Record{ID: "n1", Lat: Float(48.8), Lng: Float(2.3), Attributes: attrs})
	require.NoError(t, err)

	assert.Equal(t, "Europe", e.Attr(AttrContinent))
	e.Attributes[AttrTitle] = "changed"
	assert.Equal(t, "Strike", attrs[AttrTitle], "collaborator map must not be aliased")
	_, has := attrs[AttrContinent]
	assert.False(t, has)
}

func TestNormalize_KeepsExplicitContinent(t *testing.T) {
	e, err := Normalize(KindNews, Record{
		ID: "n2", Lat: Float(0), Lng: Float(0),
		Attributes: map[string]string{AttrCountry: "France", AttrContinent: "Custom"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Custom", e.Attr(AttrContinent))
}

func TestContinentOf_Unknown(t *testing.T) {
	assert.Equal(t, "", ContinentOf(""))
	assert.Equal(t, "", ContinentOf("Atlantis Republic of Nowhere"))
}
