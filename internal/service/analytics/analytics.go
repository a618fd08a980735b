// internal/service/analytics/analytics.go

// Package analytics derives dashboard counters and the composite threat score
package analytics

import (
	"math"

	"geointel/internal/domain/intel"
	"geointel/internal/service/filter"
)

// Threat score weights
const (
	ConflictWeight = 3.0
	QuakeWeight    = 0.5
	MaxThreat      = 100
)

// ThreatScore combines the crisis ratio with conflict and quake counts
func ThreatScore(crisisRatio float64, conflicts, quakes int) int {
	score := math.Round(crisisRatio*100 + float64(conflicts)*ConflictWeight + float64(quakes)*QuakeWeight)
	if score > MaxThreat {
		return MaxThreat
	}
	if score < 0 {
		return 0
	}
	return int(score)
}

// CrisisRatio is the share of negative articles over all news
func CrisisRatio(news []intel.GeoEntity) float64 {
	negative := 0
	for _, e := range news {
		if e.Attr(intel.AttrSentiment) == intel.SentimentNegative {
			negative++
		}
	}
	return float64(negative) / float64(max(1, len(news)))
}

// Compute derives the metrics snapshot from the full entity set. News counters
// follow the criteria; the threat score always uses the unfiltered news set.
func Compute(entities []intel.GeoEntity, c intel.Criteria) intel.Metrics {
	var (
		news   []intel.GeoEntity
		counts intel.FilteredCounts
	)
	for _, e := range entities {
		switch e.Kind {
		case intel.KindNews:
			news = append(news, e)
		case intel.KindAircraft:
			counts.Aircraft++
		case intel.KindVessel:
			counts.Vessels++
		case intel.KindSeismic:
			counts.Quakes++
		case intel.KindConflict:
			counts.Conflicts++
		}
	}

	for _, e := range filter.Apply(news, c) {
		counts.News++
		switch e.Attr(intel.AttrSentiment) {
		case intel.SentimentNegative:
			counts.Negative++
		case intel.SentimentPositive:
			counts.Positive++
		}
		if e.Flag(intel.AttrUKImpact) {
			counts.UKImpact++
		}
		if e.Flag(intel.AttrProphecy) {
			counts.Prophecy++
		}
	}

	ratio := CrisisRatio(news)
	return intel.Metrics{
		FilteredCounts: counts,
		ThreatScore:    ThreatScore(ratio, counts.Conflicts, counts.Quakes),
		CrisisRatio:    ratio,
	}
}
