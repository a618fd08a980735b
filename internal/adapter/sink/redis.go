// internal/adapter/sink/redis.go

package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"geointel/internal/domain/intel"
)

// RedisSink mirrors render state into Redis, reconciled purely from events:
//
//	<prefix>:source:<id>:entities  hash   entity id -> entity JSON
//	<prefix>:source:<id>:geo       geoset entity positions
//	<prefix>:metrics               string metrics JSON
//	<prefix>:trails                string live trail segments JSON
//
// Every event is also published on the <prefix>:events channel.
type RedisSink struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSink creates a Redis sink
func NewRedisSink(client redis.Cmdable, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

// EntitiesKey is the hash holding a source's displayed entities
func (s *RedisSink) EntitiesKey(sourceID string) string {
	return fmt.Sprintf("%s:source:%s:entities", s.prefix, sourceID)
}

// GeoKey is the geo set holding a source's positions
func (s *RedisSink) GeoKey(sourceID string) string {
	return fmt.Sprintf("%s:source:%s:geo", s.prefix, sourceID)
}

// Publish implements intel.Sink
func (s *RedisSink) Publish(ctx context.Context, ev intel.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := s.client.TxPipeline()

	switch ev.Type {
	case intel.EventDiff:
		if ev.Diff != nil {
			if err := s.applyDiff(ctx, pipe, ev.SourceID, *ev.Diff); err != nil {
				return err
			}
		}
	case intel.EventMetrics:
		m, err := json.Marshal(ev.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		pipe.Set(ctx, s.prefix+":metrics", m, 0)
	case intel.EventTrails:
		t, err := json.Marshal(ev.Trails)
		if err != nil {
			return fmt.Errorf("failed to marshal trails: %w", err)
		}
		pipe.Set(ctx, s.prefix+":trails", t, 0)
	}

	pipe.Publish(ctx, s.prefix+":events", payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (s *RedisSink) applyDiff(ctx context.Context, pipe redis.Pipeliner, sourceID string, d intel.Diff) error {
	entitiesKey := s.EntitiesKey(sourceID)
	geoKey := s.GeoKey(sourceID)

	upserts := append(append([]intel.GeoEntity{}, d.Added...), d.Updated...)
	if len(upserts) > 0 {
		fields := make(map[string]interface{}, len(upserts))
		locations := make([]*redis.GeoLocation, 0, len(upserts))
		for _, e := range upserts {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal entity %s: %w", e.ID, err)
			}
			fields[e.ID] = data
			locations = append(locations, &redis.GeoLocation{
				Name:      e.ID,
				Longitude: e.Position.Lng,
				Latitude:  clampGeoLat(e.Position.Lat),
			})
		}
		pipe.HSet(ctx, entitiesKey, fields)
		pipe.GeoAdd(ctx, geoKey, locations...)
	}

	if len(d.Removed) > 0 {
		ids := make([]string, len(d.Removed))
		members := make([]interface{}, len(d.Removed))
		for i, e := range d.Removed {
			ids[i] = e.ID
			members[i] = e.ID
		}
		pipe.HDel(ctx, entitiesKey, ids...)
		pipe.ZRem(ctx, geoKey, members...)
	}
	return nil
}

// Redis geo indexes only accept latitudes within +/-85.05112878
func clampGeoLat(lat float64) float64 {
	const limit = 85.05112878
	if lat > limit {
		return limit
	}
	if lat < -limit {
		return -limit
	}
	return lat
}
