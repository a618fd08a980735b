package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geointel/internal/domain/intel"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subj string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subj, data})
	return nil
}

type sinkFunc func(context.Context, intel.Event) error

func (f sinkFunc) Publish(ctx context.Context, ev intel.Event) error { return f(ctx, ev) }

func TestNATSSink_Subjects(t *testing.T) {
	s := NewNATSSink(&fakePublisher{}, "intel")

	tests := []struct {
		ev       intel.Event
		expected string
	}{
		{intel.Event{Type: intel.EventDiff, SourceID: "aircraft"}, "intel.aircraft.diff"},
		{intel.Event{Type: intel.EventMetrics}, "intel.metrics"},
		{intel.Event{Type: intel.EventTrails}, "intel.trails"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, s.Subject(tt.ev))
	}
}

func TestNATSSink_Publish(t *testing.T) {
	pub := &fakePublisher{}
	s := NewNATSSink(pub, "intel")
	ev := intel.Event{
		ID:       "e1",
		Type:     intel.EventDiff,
		SourceID: "seismic",
		At:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Diff:     &intel.Diff{Removed: []intel.GeoEntity{{ID: "q1", Kind: intel.KindSeismic}}},
	}

	require.NoError(t, s.Publish(context.Background(), ev))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "intel.seismic.diff", pub.msgs[0].subject)
	var got intel.Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, "q1", got.Diff.Removed[0].ID)
}

func TestNATSSink_PublishError(t *testing.T) {
	s := NewNATSSink(&fakePublisher{err: errors.New("nats: connection closed")}, "intel")

	err := s.Publish(context.Background(), intel.Event{Type: intel.EventMetrics})

	assert.ErrorContains(t, err, "connection closed")
}

func TestMulti_AttemptsEverySink(t *testing.T) {
	var calls int
	ok := sinkFunc(func(context.Context, intel.Event) error { calls++; return nil })
	boom := errors.New("boom")
	bad := sinkFunc(func(context.Context, intel.Event) error { calls++; return boom })

	err := Multi{bad, ok, ok}.Publish(context.Background(), intel.Event{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRedisSink_Keys(t *testing.T) {
	s := NewRedisSink(nil, "intel")

	assert.Equal(t, "intel:source:vessel:entities", s.EntitiesKey("vessel"))
	assert.Equal(t, "intel:source:vessel:geo", s.GeoKey("vessel"))
}

func TestRedisSink_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := NewRedisSink(client, "intel")

	err := s.Publish(context.Background(), intel.Event{
		Type:     intel.EventDiff,
		SourceID: "aircraft",
		Diff:     &intel.Diff{Added: []intel.GeoEntity{{ID: "a1", Position: intel.Position{Lat: 89, Lng: 10}}}},
	})

	assert.ErrorContains(t, err, "redis pipeline failed")
}

// commandLog records pipelined commands instead of sending them
type commandLog struct {
	cmds [][]interface{}
}

func (l *commandLog) DialHook(next redis.DialHook) redis.DialHook { return next }

func (l *commandLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (l *commandLog) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		for _, c := range cmds {
			switch c.Name() {
			case "multi", "exec":
			default:
				l.cmds = append(l.cmds, c.Args())
			}
		}
		return nil
	}
}

func (l *commandLog) names() []string {
	out := make([]string, len(l.cmds))
	for i, c := range l.cmds {
		out[i] = c[0].(string)
	}
	return out
}

func newLoggedRedisSink(t *testing.T) (*RedisSink, *commandLog) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	log := &commandLog{}
	client.AddHook(log)
	return NewRedisSink(client, "intel"), log
}

func TestRedisSink_UpsertWritesHashAndGeo(t *testing.T) {
	s, log := newLoggedRedisSink(t)
	plane := intel.GeoEntity{ID: "a1", Kind: intel.KindAircraft, Position: intel.Position{Lat: 89, Lng: 10}}

	err := s.Publish(context.Background(), intel.Event{
		Type:     intel.EventDiff,
		SourceID: "aircraft",
		Diff:     &intel.Diff{Updated: []intel.GeoEntity{plane}},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"hset", "geoadd", "publish"}, log.names())

	hset := log.cmds[0]
	require.Len(t, hset, 4)
	assert.Equal(t, "intel:source:aircraft:entities", hset[1])
	assert.Equal(t, "a1", hset[2])
	var stored intel.GeoEntity
	require.NoError(t, json.Unmarshal(hset[3].([]byte), &stored))
	assert.Equal(t, plane.Position, stored.Position)

	assert.Equal(t, []interface{}{"geoadd", "intel:source:aircraft:geo", 10.0, 85.05112878, "a1"}, log.cmds[1])
	assert.Equal(t, "intel:events", log.cmds[2][1])
}

func TestRedisSink_RemovalDeletesHashAndGeo(t *testing.T) {
	s, log := newLoggedRedisSink(t)

	err := s.Publish(context.Background(), intel.Event{
		Type:     intel.EventDiff,
		SourceID: "news",
		Diff: &intel.Diff{Removed: []intel.GeoEntity{
			{ID: "n1", Kind: intel.KindNews},
			{ID: "n2", Kind: intel.KindNews},
		}},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"hdel", "zrem", "publish"}, log.names())
	assert.Equal(t, []interface{}{"hdel", "intel:source:news:entities", "n1", "n2"}, log.cmds[0])
	assert.Equal(t, []interface{}{"zrem", "intel:source:news:geo", "n1", "n2"}, log.cmds[1])
}

func TestRedisSink_MetricsAreStored(t *testing.T) {
	s, log := newLoggedRedisSink(t)

	err := s.Publish(context.Background(), intel.Event{
		Type:    intel.EventMetrics,
		Metrics: &intel.Metrics{ThreatScore: 63},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"set", "publish"}, log.names())
	assert.Equal(t, "intel:metrics", log.cmds[0][1])
	assert.Contains(t, string(log.cmds[0][2].([]byte)), `"threat_score":63`)
}

func TestClampGeoLat(t *testing.T) {
	assert.Equal(t, 85.05112878, clampGeoLat(89.9))
	assert.Equal(t, -85.05112878, clampGeoLat(-90))
	assert.Equal(t, 51.5, clampGeoLat(51.5))
}
