package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geointel/internal/domain/intel"
)

func news(id, sentiment string) intel.GeoEntity {
	return intel.GeoEntity{ID: id, Kind: intel.KindNews, Attributes: map[string]string{"sentiment": sentiment}}
}

func many(kind intel.Kind, n int) []intel.GeoEntity {
	out := make([]intel.GeoEntity, n)
	for i := range out {
		out[i] = intel.GeoEntity{ID: string(kind) + string(rune('a'+i)), Kind: kind}
	}
	return out
}

func TestThreatScore(t *testing.T) {
	tests := []struct {
		name      string
		ratio     float64
		conflicts int
		quakes    int
		expected  int
	}{
		{"reference mix", 0.5, 4, 2, 63},
		{"quiet world", 0, 0, 0, 0},
		{"rounds half up", 0, 0, 1, 1},
		{"capped", 1, 30, 10, 100},
		{"quakes only", 0, 0, 7, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ThreatScore(tt.ratio, tt.conflicts, tt.quakes))
		})
	}
}

func TestCrisisRatio_EmptyNews(t *testing.T) {
	assert.Equal(t, 0.0, CrisisRatio(nil))
}

func TestCompute(t *testing.T) {
	var all []intel.GeoEntity
	all = append(all, news("n1", "negative"), news("n2", "negative"), news("n3", "positive"), news("n4", "neutral"))
	all = append(all, many(intel.KindConflict, 4)...)
	all = append(all, many(intel.KindSeismic, 2)...)
	all = append(all, many(intel.KindAircraft, 3)...)
	all = append(all, many(intel.KindVessel, 1)...)

	m := Compute(all, intel.DefaultCriteria())

	assert.Equal(t, intel.FilteredCounts{
		News: 4, Negative: 2, Positive: 1,
		Aircraft: 3, Vessels: 1, Quakes: 2, Conflicts: 4,
	}, m.FilteredCounts)
	assert.Equal(t, 0.5, m.CrisisRatio)
	assert.Equal(t, 63, m.ThreatScore)
}

func TestCompute_ThreatIgnoresCriteria(t *testing.T) {
	all := []intel.GeoEntity{news("n1", "negative"), news("n2", "positive")}

	filtered := Compute(all, intel.Criteria{Flag: intel.FlagPositive})
	unfiltered := Compute(all, intel.DefaultCriteria())

	assert.Equal(t, 1, filtered.FilteredCounts.News)
	assert.Equal(t, 0, filtered.FilteredCounts.Negative)
	assert.Equal(t, unfiltered.ThreatScore, filtered.ThreatScore)
	assert.Equal(t, 0.5, filtered.CrisisRatio)
}

func TestCompute_RawCountsIgnoreCriteria(t *testing.T) {
	all := many(intel.KindAircraft, 5)

	m := Compute(all, intel.Criteria{SearchTerm: "nothing matches this"})

	assert.Equal(t, 5, m.FilteredCounts.Aircraft)
}

func TestTooltip(t *testing.T) {
	t.Run("aircraft", func(t *testing.T) {
		tip := Tooltip(intel.GeoEntity{
			ID: "abc123", Kind: intel.KindAircraft,
			Position:   intel.Position{Lat: 51.47, Lng: -0.4543},
			Motion:     &intel.Motion{HeadingDeg: 270, SpeedKmh: 820},
			Attributes: map[string]string{"callsign": "BAW12", "altitude_ft": "35000"},
		})

		assert.Equal(t, "BAW12", tip.Title)
		assert.Equal(t, intel.KindAircraft, tip.Kind)
		assert.Contains(t, tip.Fields, intel.Field{Label: "Altitude (ft)", Value: "35000"})
		assert.Contains(t, tip.Fields, intel.Field{Label: "Speed (km/h)", Value: "820"})
		assert.Equal(t, intel.Field{Label: "Position", Value: "51.4700, -0.4543"}, tip.Fields[len(tip.Fields)-1])
	})

	t.Run("seismic prefers severity", func(t *testing.T) {
		tip := Tooltip(intel.GeoEntity{
			ID: "q", Kind: intel.KindSeismic, Severity: intel.Float(6.24),
			Attributes: map[string]string{"place": "off the coast of Chile", "magnitude": "6.2"},
		})

		assert.Equal(t, "off the coast of Chile", tip.Title)
		require.NotEmpty(t, tip.Fields)
		assert.Equal(t, intel.Field{Label: "Magnitude", Value: "6.2"}, tip.Fields[0])
	})

	t.Run("news skips missing attributes", func(t *testing.T) {
		tip := Tooltip(intel.GeoEntity{
			ID: "n", Kind: intel.KindNews,
			Attributes: map[string]string{"title": "Storm", "uk_impact": "true"},
		})

		assert.Equal(t, []intel.Field{
			{Label: "UK impact", Value: "yes"},
			{Label: "Position", Value: "0.0000, 0.0000"},
		}, tip.Fields)
	})
}
