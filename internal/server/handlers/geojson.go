// internal/server/handlers/geojson.go

package handlers

import (
	"net/http"

	geojson "github.com/paulmach/go.geojson"

	"geointel/internal/domain/intel"
)

// GetEntitiesGeoJSON returns displayed entities as a GeoJSON FeatureCollection
func (h *IntelHandler) GetEntitiesGeoJSON(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Unknown kind", nil)
		return
	}

	var entities []intel.GeoEntity
	if r.URL.Query().Get("filtered") == "true" {
		entities = h.engine.Filtered(kind)
	} else {
		entities = h.engine.Entities(kind)
	}

	body, err := FeatureCollection(entities).MarshalJSON()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to encode GeoJSON", err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// FeatureCollection converts entities to point features. GeoJSON orders
// coordinates longitude first.
func FeatureCollection(entities []intel.GeoEntity) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range entities {
		f := geojson.NewPointFeature([]float64{e.Position.Lng, e.Position.Lat})
		f.ID = e.ID
		f.SetProperty("kind", string(e.Kind))
		if e.Motion != nil {
			f.SetProperty("heading_deg", e.Motion.HeadingDeg)
			f.SetProperty("speed_kmh", e.Motion.SpeedKmh)
		}
		if e.Severity != nil {
			f.SetProperty("severity", *e.Severity)
		}
		for k, v := range e.Attributes {
			f.SetProperty(k, v)
		}
		fc.AddFeature(f)
	}
	return fc
}
