// internal/domain/intel/record.go

package intel

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/biter777/countries"
)

// ErrMalformedRecord marks a feed record that cannot become a GeoEntity
var ErrMalformedRecord = errors.New("malformed record")

// Record is the already-parsed shape a feed collaborator hands to the engine.
// Optional fields are pointers so a missing value is distinguishable from zero.
type Record struct {
	ID         string            `json:"id"`
	Lat        *float64          `json:"lat"`
	Lng        *float64          `json:"lng"`
	HeadingDeg *float64          `json:"heading_deg,omitempty"`
	SpeedKmh   *float64          `json:"speed_kmh,omitempty"`
	Severity   *float64          `json:"severity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Normalize validates a record and converts it into a GeoEntity of the given kind
func Normalize(kind Kind, rec Record) (GeoEntity, error) {
	if rec.Lat == nil || rec.Lng == nil {
		return GeoEntity{}, fmt.Errorf("%w: missing position", ErrMalformedRecord)
	}
	pos := Position{Lat: *rec.Lat, Lng: *rec.Lng}
	if !finite(pos.Lat) || !finite(pos.Lng) || !pos.Valid() {
		return GeoEntity{}, fmt.Errorf("%w: position %v,%v out of range", ErrMalformedRecord, pos.Lat, pos.Lng)
	}

	e := GeoEntity{
		ID:       strings.TrimSpace(rec.ID),
		Kind:     kind,
		Position: pos,
	}
	if e.ID == "" {
		e.ID = DeriveID(kind, pos)
	}

	if rec.SpeedKmh != nil && rec.HeadingDeg != nil {
		speed, heading := *rec.SpeedKmh, *rec.HeadingDeg
		if !finite(speed) || speed < 0 {
			return GeoEntity{}, fmt.Errorf("%w: invalid speed %v", ErrMalformedRecord, speed)
		}
		if !finite(heading) {
			return GeoEntity{}, fmt.Errorf("%w: invalid heading %v", ErrMalformedRecord, heading)
		}
		heading = math.Mod(heading, 360)
		if heading < 0 {
			heading += 360
		}
		e.Motion = &Motion{HeadingDeg: heading, SpeedKmh: speed}
	}

	if rec.Severity != nil {
		if !finite(*rec.Severity) {
			return GeoEntity{}, fmt.Errorf("%w: invalid severity", ErrMalformedRecord)
		}
		sev := *rec.Severity
		e.Severity = &sev
	}

	e.Attributes = make(map[string]string, len(rec.Attributes)+1)
	for k, v := range rec.Attributes {
		e.Attributes[k] = v
	}
	if e.Attributes[AttrContinent] == "" {
		if c := ContinentOf(e.Attributes[AttrCountry]); c != "" {
			e.Attributes[AttrContinent] = c
		}
	}

	return e, nil
}

// DeriveID builds a stable key from coordinates rounded to three decimals,
// for feeds whose records carry no natural identifier.
func DeriveID(kind Kind, p Position) string {
	return fmt.Sprintf("%s:%.3f,%.3f", kind, round3(p.Lat), round3(p.Lng))
}

// round3 rounds to three decimals and folds negative zero into zero
func round3(v float64) float64 {
	return math.Round(v*1000)/1000 + 0
}

// ContinentOf maps a country name or ISO code to its continent name.
// Unknown countries map to "".
func ContinentOf(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return ""
	}
	code := countries.ByName(country)
	if !code.IsValid() {
		return ""
	}
	name := code.Region().String()
	switch strings.ToLower(name) {
	case "", "unknown", "none":
		return ""
	}
	return name
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
