// internal/service/motion/motion.go

// Package motion dead-reckons moving entities between authoritative fixes.
//
// The model is flat-earth: one degree is taken as 111 km on both axes and
// longitude is not scaled by latitude. This is an approximation for short,
// sub-poll-interval extrapolation, not navigation. Every fix resets the
// extrapolated position, so error never carries past one poll interval.
package motion

import (
	"math"
	"sort"
	"time"

	"geointel/internal/domain/intel"
)

// TickInterval is the interpolation cadence, independent of any poll interval
const TickInterval = time.Second

// KmPerDegree is the flat-earth conversion factor
const KmPerDegree = 111.0

// Step advances p along m for the given number of seconds
func Step(p intel.Position, m intel.Motion, seconds float64) intel.Position {
	degPerSec := (m.SpeedKmh / 3600) / KmPerDegree
	headingRad := m.HeadingDeg * math.Pi / 180
	return wrap(intel.Position{
		Lat: p.Lat + degPerSec*seconds*math.Cos(headingRad),
		Lng: p.Lng + degPerSec*seconds*math.Sin(headingRad),
	})
}

// keep extrapolated points inside the valid coordinate domain
func wrap(p intel.Position) intel.Position {
	if p.Lat > 90 {
		p.Lat = 90
	} else if p.Lat < -90 {
		p.Lat = -90
	}
	if p.Lng > 180 {
		p.Lng -= 360
	} else if p.Lng < -180 {
		p.Lng += 360
	}
	return p
}

type key struct {
	source string
	id     string
}

type tracked struct {
	pos    intel.Position
	motion intel.Motion
}

// Interpolator holds the displayed position of every moving entity. It never
// writes back to the entity store. Not safe for concurrent use.
type Interpolator struct {
	tracked map[key]*tracked
}

// New creates an empty interpolator
func New() *Interpolator {
	return &Interpolator{tracked: make(map[key]*tracked)}
}

// Fix snaps an entity to its authoritative position. Entities without a
// usable motion vector are dropped from interpolation.
func (ip *Interpolator) Fix(sourceID string, e intel.GeoEntity) {
	k := key{sourceID, e.ID}
	if !e.Motion.Moving() {
		delete(ip.tracked, k)
		return
	}
	ip.tracked[k] = &tracked{pos: e.Position, motion: *e.Motion}
}

// Forget stops interpolating one entity
func (ip *Interpolator) Forget(sourceID, id string) {
	delete(ip.tracked, key{sourceID, id})
}

// ForgetSource stops interpolating every entity of a source
func (ip *Interpolator) ForgetSource(sourceID string) {
	for k := range ip.tracked {
		if k.source == sourceID {
			delete(ip.tracked, k)
		}
	}
}

// Position returns the displayed position of an interpolated entity
func (ip *Interpolator) Position(sourceID, id string) (intel.Position, bool) {
	t, ok := ip.tracked[key{sourceID, id}]
	if !ok {
		return intel.Position{}, false
	}
	return t.pos, true
}

// Advance moves every tracked entity by the given number of seconds and
// returns the moved entity ids grouped by source, sorted.
func (ip *Interpolator) Advance(seconds float64) map[string][]string {
	moved := make(map[string][]string)
	for k, t := range ip.tracked {
		t.pos = Step(t.pos, t.motion, seconds)
		moved[k.source] = append(moved[k.source], k.id)
	}
	for _, list := range moved {
		sort.Strings(list)
	}
	return moved
}

// Len returns the number of tracked entities
func (ip *Interpolator) Len() int {
	return len(ip.tracked)
}
