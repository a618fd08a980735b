// internal/service/analytics/tooltip.go

package analytics

import (
	"fmt"
	"strconv"

	"geointel/internal/domain/intel"
)

// Tooltip builds the structured hover payload for an entity. Missing
// attributes are skipped rather than rendered empty.
func Tooltip(e intel.GeoEntity) intel.Tooltip {
	t := intel.Tooltip{Kind: e.Kind}

	switch e.Kind {
	case intel.KindNews:
		t.Title = firstNonEmpty(e.Attr(intel.AttrTitle), "News")
		t.Fields = fields(e,
			intel.AttrSourceName, "Source",
			intel.AttrCountry, "Country",
			intel.AttrCategory, "Category",
			intel.AttrSentiment, "Sentiment",
			intel.AttrPublishedAt, "Published",
			intel.AttrURL, "Link",
		)
		if e.Flag(intel.AttrUKImpact) {
			t.Fields = append(t.Fields, intel.Field{Label: "UK impact", Value: "yes"})
		}
		if e.Flag(intel.AttrProphecy) {
			t.Fields = append(t.Fields, intel.Field{Label: "Prophecy", Value: "yes"})
		}

	case intel.KindAircraft:
		t.Title = firstNonEmpty(e.Attr(intel.AttrCallsign), e.ID)
		t.Fields = fields(e,
			intel.AttrOrigin, "Origin",
			intel.AttrAltitude, "Altitude (ft)",
		)
		t.Fields = append(t.Fields, motionFields(e.Motion)...)

	case intel.KindVessel:
		t.Title = firstNonEmpty(e.Attr(intel.AttrVesselName), e.ID)
		t.Fields = fields(e,
			intel.AttrFleet, "Fleet",
			intel.AttrCountry, "Flag",
			intel.AttrStatus, "Status",
		)
		t.Fields = append(t.Fields, motionFields(e.Motion)...)

	case intel.KindSeismic:
		t.Title = firstNonEmpty(e.Attr(intel.AttrPlace), "Earthquake")
		if e.Severity != nil {
			t.Fields = append(t.Fields, intel.Field{Label: "Magnitude", Value: strconv.FormatFloat(*e.Severity, 'f', 1, 64)})
		} else {
			t.Fields = fields(e, intel.AttrMagnitude, "Magnitude")
		}
		t.Fields = append(t.Fields, fields(e, intel.AttrDepth, "Depth (km)")...)

	case intel.KindConflict:
		t.Title = firstNonEmpty(e.Attr(intel.AttrTitle), e.Attr(intel.AttrCountry), "Conflict zone")
		t.Fields = fields(e,
			intel.AttrCountry, "Country",
			intel.AttrParties, "Parties",
			intel.AttrFatalities, "Fatalities",
		)
		if e.Severity != nil {
			t.Fields = append(t.Fields, intel.Field{Label: "Severity", Value: strconv.FormatFloat(*e.Severity, 'f', -1, 64)})
		}

	default:
		t.Title = e.ID
	}

	t.Fields = append(t.Fields, intel.Field{
		Label: "Position",
		Value: fmt.Sprintf("%.4f, %.4f", e.Position.Lat, e.Position.Lng),
	})
	return t
}

// fields takes key/label pairs
func fields(e intel.GeoEntity, pairs ...string) []intel.Field {
	var out []intel.Field
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := e.Attr(pairs[i]); v != "" {
			out = append(out, intel.Field{Label: pairs[i+1], Value: v})
		}
	}
	return out
}

func motionFields(m *intel.Motion) []intel.Field {
	if m == nil {
		return nil
	}
	return []intel.Field{
		{Label: "Heading", Value: fmt.Sprintf("%.0f°", m.HeadingDeg)},
		{Label: "Speed (km/h)", Value: fmt.Sprintf("%.0f", m.SpeedKmh)},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
