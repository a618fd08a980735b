// internal/domain/intel/model.go

package intel

import (
	"maps"
	"time"
)

// Kind identifies the feed family an entity came from
type Kind string

// Feed kinds
const (
	KindNews     Kind = "news"
	KindAircraft Kind = "aircraft"
	KindVessel   Kind = "vessel"
	KindSeismic  Kind = "seismic"
	KindConflict Kind = "conflict"
)

// Kinds lists every known kind in display order
var Kinds = []Kind{KindNews, KindAircraft, KindVessel, KindSeismic, KindConflict}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Well-known attribute keys
const (
	AttrTitle       = "title"
	AttrDescription = "description"
	AttrSourceName  = "source"
	AttrCountry     = "country"
	AttrCategory    = "category"
	AttrContinent   = "continent"
	AttrSentiment   = "sentiment"
	AttrUKImpact    = "uk_impact"
	AttrProphecy    = "prophecy"
	AttrURL         = "url"
	AttrPublishedAt = "published_at"
	AttrCallsign    = "callsign"
	AttrAltitude    = "altitude_ft"
	AttrOrigin      = "origin_country"
	AttrMagnitude   = "magnitude"
	AttrDepth       = "depth_km"
	AttrPlace       = "place"
	AttrVesselName  = "vessel_name"
	AttrFleet       = "fleet"
	AttrStatus      = "status"
	AttrFatalities  = "fatalities"
	AttrParties     = "parties"
)

// Sentiment values carried in AttrSentiment
const (
	SentimentNegative = "negative"
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
)

// Position is a WGS84 coordinate pair
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the position is inside the lat/lng domain
func (p Position) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Motion is a heading (degrees clockwise from north) and ground speed
type Motion struct {
	HeadingDeg float64 `json:"heading_deg"`
	SpeedKmh   float64 `json:"speed_kmh"`
}

// Moving reports whether the motion vector can be extrapolated
func (m *Motion) Moving() bool {
	return m != nil && m.SpeedKmh > 0
}

// GeoEntity is a normalized, geolocated record from one source
type GeoEntity struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Position   Position          `json:"position"`
	Motion     *Motion           `json:"motion,omitempty"`
	Severity   *float64          `json:"severity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns an attribute value or ""
func (e GeoEntity) Attr(key string) string {
	return e.Attributes[key]
}

// Flag reports whether a boolean attribute is set to "true"
func (e GeoEntity) Flag(key string) bool {
	return e.Attributes[key] == "true"
}

// Equal compares every field of two entities. Pointer fields compare by value.
func (e GeoEntity) Equal(o GeoEntity) bool {
	if e.ID != o.ID || e.Kind != o.Kind || e.Position != o.Position {
		return false
	}
	if (e.Motion == nil) != (o.Motion == nil) {
		return false
	}
	if e.Motion != nil && *e.Motion != *o.Motion {
		return false
	}
	if (e.Severity == nil) != (o.Severity == nil) {
		return false
	}
	if e.Severity != nil && *e.Severity != *o.Severity {
		return false
	}
	return maps.Equal(e.Attributes, o.Attributes)
}

// WithPosition returns a copy of e placed at p. Attributes are shared.
func (e GeoEntity) WithPosition(p Position) GeoEntity {
	e.Position = p
	return e
}

// Fix is the last position a feed reported for an entity
type Fix struct {
	Position Position  `json:"position"`
	At       time.Time `json:"at"`
}

// Diff is the change between two successive snapshots of one source
type Diff struct {
	Added   []GeoEntity `json:"added"`
	Updated []GeoEntity `json:"updated"`
	Removed []GeoEntity `json:"removed"`
}

// Empty reports whether the diff carries no change
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Move records the previous and new fix of an updated entity
type Move struct {
	ID   string
	From Position
	To   Position
}

// TrailSegment is a purely visual piece of motion history
type TrailSegment struct {
	SourceID  string        `json:"source_id"`
	EntityID  string        `json:"entity_id"`
	From      Position      `json:"from"`
	To        Position      `json:"to"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// ExpiresAt is the instant the segment is destroyed
func (s TrailSegment) ExpiresAt() time.Time {
	return s.CreatedAt.Add(s.TTL)
}

// FilteredCounts are the dashboard counters. News counters reflect the
// current criteria; the other kinds are raw counts.
type FilteredCounts struct {
	News      int `json:"news"`
	Negative  int `json:"negative"`
	Positive  int `json:"positive"`
	UKImpact  int `json:"uk_impact"`
	Prophecy  int `json:"prophecy"`
	Aircraft  int `json:"aircraft"`
	Vessels   int `json:"vessels"`
	Quakes    int `json:"quakes"`
	Conflicts int `json:"conflicts"`
}

// Metrics is the derived analytics snapshot
type Metrics struct {
	FilteredCounts FilteredCounts `json:"filtered_counts"`
	ThreatScore    int            `json:"threat_score"`
	CrisisRatio    float64        `json:"crisis_ratio"`
}

// Field is one labelled tooltip line
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Tooltip is the structured hover payload for an entity
type Tooltip struct {
	Title  string  `json:"title"`
	Kind   Kind    `json:"kind"`
	Fields []Field `json:"fields"`
}
