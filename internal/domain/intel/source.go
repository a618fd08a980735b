// internal/domain/intel/source.go

package intel

import "time"

// Source is one independently polled feed
type Source struct {
	ID           string        `json:"id"`
	Kind         Kind          `json:"kind"`
	PollInterval time.Duration `json:"poll_interval"`
	Enabled      bool          `json:"enabled"`
}

// SourceStatus is the runtime view of a source
type SourceStatus struct {
	Source
	EntityCount         int       `json:"entity_count"`
	LastFetched         time.Time `json:"last_fetched"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	FetchInFlight       bool      `json:"fetch_in_flight"`
	NextPoll            time.Time `json:"next_poll"`
}

// Poll cadences. These are fixed per feed and not caller-configurable.
const (
	NewsPollInterval     = 60 * time.Second
	AircraftPollInterval = 30 * time.Second
	SeismicPollInterval  = 300 * time.Second
	ConflictPollInterval = 600 * time.Second
	VesselPollInterval   = 300 * time.Second
)

// DefaultSources returns the five feeds, all disabled. Source ids equal kinds.
func DefaultSources() []Source {
	return []Source{
		{ID: string(KindNews), Kind: KindNews, PollInterval: NewsPollInterval},
		{ID: string(KindAircraft), Kind: KindAircraft, PollInterval: AircraftPollInterval},
		{ID: string(KindVessel), Kind: KindVessel, PollInterval: VesselPollInterval},
		{ID: string(KindSeismic), Kind: KindSeismic, PollInterval: SeismicPollInterval},
		{ID: string(KindConflict), Kind: KindConflict, PollInterval: ConflictPollInterval},
	}
}
