// internal/service/filter/filter.go

// Package filter derives the dashboard view from entities and criteria
package filter

import (
	"strings"

	"geointel/internal/domain/intel"
)

// searchFields are the attributes a search term is matched against
var searchFields = []string{
	intel.AttrTitle,
	intel.AttrDescription,
	intel.AttrSourceName,
	intel.AttrCountry,
}

// Apply returns the entities that pass every criterion, in input order. The
// input slice and its entities are never modified.
func Apply(entities []intel.GeoEntity, c intel.Criteria) []intel.GeoEntity {
	c = c.Normalize()
	term := strings.ToLower(strings.TrimSpace(c.SearchTerm))

	out := make([]intel.GeoEntity, 0, len(entities))
	for _, e := range entities {
		if Match(e, c, term) {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether one entity passes the criteria. term must already be
// lower-cased; an empty term matches everything.
func Match(e intel.GeoEntity, c intel.Criteria, term string) bool {
	if !matchFlag(e, c.Flag) {
		return false
	}
	if !matchExact(e.Attr(intel.AttrCategory), c.Category) {
		return false
	}
	if !matchExact(e.Attr(intel.AttrContinent), c.Continent) {
		return false
	}
	return matchSearch(e, term)
}

func matchFlag(e intel.GeoEntity, f intel.Flag) bool {
	switch f {
	case intel.FlagNegative:
		return e.Attr(intel.AttrSentiment) == intel.SentimentNegative
	case intel.FlagPositive:
		return e.Attr(intel.AttrSentiment) == intel.SentimentPositive
	case intel.FlagUKImpact:
		return e.Flag(intel.AttrUKImpact)
	case intel.FlagProphecy:
		return e.Flag(intel.AttrProphecy)
	default:
		return true
	}
}

func matchExact(value, want string) bool {
	if want == "" || want == intel.AllValue {
		return true
	}
	return value == want
}

func matchSearch(e intel.GeoEntity, term string) bool {
	if term == "" {
		return true
	}
	for _, key := range searchFields {
		if strings.Contains(strings.ToLower(e.Attr(key)), term) {
			return true
		}
	}
	return false
}
