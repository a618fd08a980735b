// internal/adapter/storage/zone_store.go

package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"geointel/internal/domain/intel"
)

// Querier is the part of pgxpool.Pool the zone store needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

var _ Querier = (*pgxpool.Pool)(nil)

// ZoneStore serves the curated naval deployment and conflict zone feeds from
// Postgres. It implements intel.Fetcher for those two kinds.
type ZoneStore struct {
	db Querier
}

// NewZoneStore creates a new zone store
func NewZoneStore(db Querier) *ZoneStore {
	return &ZoneStore{
		db: db,
	}
}

// vesselRow is one row of naval_deployments
type vesselRow struct {
	ID        string
	Name      string
	Fleet     *string
	Country   *string
	Status    *string
	Lat       *float64
	Lng       *float64
	Heading   *float64
	SpeedKmh  *float64
	UpdatedAt time.Time
}

// conflictRow is one row of conflict_zones
type conflictRow struct {
	ID         string
	Name       string
	Country    *string
	Parties    *string
	Fatalities *int64
	Severity   *float64
	Lat        *float64
	Lng        *float64
	UpdatedAt  time.Time
}

// FetchFeed returns the current rows of the table backing kind
func (s *ZoneStore) FetchFeed(ctx context.Context, kind intel.Kind) ([]intel.Record, error) {
	switch kind {
	case intel.KindVessel:
		return s.vessels(ctx)
	case intel.KindConflict:
		return s.conflicts(ctx)
	default:
		return nil, fmt.Errorf("zone store does not serve %q feeds", kind)
	}
}

func (s *ZoneStore) vessels(ctx context.Context) ([]intel.Record, error) {
	query := `
		SELECT
			id, name, fleet, country, status,
			ST_Y(position::geometry) as lat, ST_X(position::geometry) as lng,
			heading_deg, speed_kmh, updated_at
		FROM naval_deployments
		WHERE active = true
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var records []intel.Record
	for rows.Next() {
		var r vesselRow
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Fleet,
			&r.Country,
			&r.Status,
			&r.Lat,
			&r.Lng,
			&r.Heading,
			&r.SpeedKmh,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning vessel: %w", err)
		}
		records = append(records, r.record())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vessels: %w", err)
	}

	return records, nil
}

func (s *ZoneStore) conflicts(ctx context.Context) ([]intel.Record, error) {
	query := `
		SELECT
			id, name, country, parties, fatalities, severity,
			ST_Y(ST_Centroid(area::geometry)) as lat, ST_X(ST_Centroid(area::geometry)) as lng,
			updated_at
		FROM conflict_zones
		WHERE active = true
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var records []intel.Record
	for rows.Next() {
		var r conflictRow
		err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Country,
			&r.Parties,
			&r.Fatalities,
			&r.Severity,
			&r.Lat,
			&r.Lng,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning conflict zone: %w", err)
		}
		records = append(records, r.record())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conflict zones: %w", err)
	}

	return records, nil
}

// record maps a row to a feed record. NULL coordinates are passed through so
// normalization rejects the row as malformed.
func (r vesselRow) record() intel.Record {
	attrs := map[string]string{
		intel.AttrVesselName:  r.Name,
		intel.AttrPublishedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	setOpt(attrs, intel.AttrFleet, r.Fleet)
	setOpt(attrs, intel.AttrCountry, r.Country)
	setOpt(attrs, intel.AttrStatus, r.Status)

	return intel.Record{
		ID:         r.ID,
		Lat:        r.Lat,
		Lng:        r.Lng,
		HeadingDeg: r.Heading,
		SpeedKmh:   r.SpeedKmh,
		Attributes: attrs,
	}
}

func (r conflictRow) record() intel.Record {
	attrs := map[string]string{
		intel.AttrTitle:       r.Name,
		intel.AttrPublishedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	setOpt(attrs, intel.AttrCountry, r.Country)
	setOpt(attrs, intel.AttrParties, r.Parties)
	if r.Fatalities != nil {
		attrs[intel.AttrFatalities] = strconv.FormatInt(*r.Fatalities, 10)
	}

	return intel.Record{
		ID:         r.ID,
		Lat:        r.Lat,
		Lng:        r.Lng,
		Severity:   r.Severity,
		Attributes: attrs,
	}
}

func setOpt(attrs map[string]string, key string, v *string) {
	if v != nil && *v != "" {
		attrs[key] = *v
	}
}
