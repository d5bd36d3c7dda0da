package link

import "time"

// Coords is a raw position report as sent by a tracked device.
// The device may include movement metadata; only latitude/longitude are
// mandatory.
type Coords struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Heading   float64 `json:"heading,omitempty"`
}

// Sample is a coordinate report plus the server-assigned ingestion time.
// The timestamp is set when the report is appended, never taken from the
// device clock.
type Sample struct {
	Coords
	Timestamp time.Time `json:"timestamp"`
}

// Link is the full record for one tracking relationship: identity, display
// name, liveness state and the append-only position history.
// LastLocation mirrors the coordinates of the last entry in Locations and is
// nil exactly when Locations is empty; the same holds for LastSeen.
type Link struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLocation *Coords    `json:"lastLocation"`
	Locations    []Sample   `json:"locations"`
	IsActive     bool       `json:"isActive"`
	LastSeen     *time.Time `json:"lastSeen"`
}

// Clone returns a deep copy. The registry hands out clones only so no caller
// can mutate a stored record outside the registry lock.
func (l *Link) Clone() Link {
	out := *l
	if l.LastLocation != nil {
		c := *l.LastLocation
		out.LastLocation = &c
	}
	if l.LastSeen != nil {
		t := *l.LastSeen
		out.LastSeen = &t
	}
	if l.Locations != nil {
		out.Locations = append([]Sample(nil), l.Locations...)
	}
	return out
}

// Status is the digest broadcast to every connected observer after each
// ingested report. It drives live roster views and is intentionally not
// scoped to room subscribers.
type Status struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	IsActive bool       `json:"isActive"`
	LastSeen *time.Time `json:"lastSeen"`
	Coords   Coords     `json:"coords"`
}
