package models

import (
	"time"

	"github.com/yourorg/kharkivmetro/internal/itinerary"
	"github.com/yourorg/kharkivmetro/internal/metro"
)

// RouteQuery is the query string of GET /api/route.
type RouteQuery struct {
	From    string `query:"from" validate:"required,max=100"`
	To      string `query:"to" validate:"required,max=100"`
	Time    string `query:"time"`
	Date    string `query:"date"`
	DayType string `query:"day_type" validate:"omitempty,oneof=weekday weekend"`
	Lang    string `query:"lang" validate:"omitempty,oneof=ua uk en UA UK EN"`
	Compact *bool  `query:"compact"`
}

// StationDTO is one station as listed by the API.
type StationDTO struct {
	ID            metro.StationID   `json:"id"`
	Name          string            `json:"name"`
	NameUA        string            `json:"name_ua"`
	NameEN        string            `json:"name_en"`
	Lines         []metro.LineID    `json:"lines"`
	IsInterchange bool              `json:"is_interchange"`
	TransfersTo   []metro.StationID `json:"transfers_to,omitempty"`
}

// LineDTO is a line with its stations in travel order.
type LineDTO struct {
	ID       metro.LineID `json:"id"`
	Name     string       `json:"name"`
	Color    string       `json:"color"`
	Stations []StationDTO `json:"stations"`
}

// CandidateDTO is a possible match offered when a query is ambiguous.
type CandidateDTO struct {
	ID    metro.StationID `json:"id"`
	Name  string          `json:"name"`
	Score float64         `json:"score"`
}

// ResolveResponse reports how a free-text query mapped to a station.
type ResolveResponse struct {
	Query       string         `json:"query"`
	Status      string         `json:"status"`
	Tier        string         `json:"tier"`
	Station     *StationDTO    `json:"station,omitempty"`
	Candidates  []CandidateDTO `json:"candidates,omitempty"`
	Suggestions []CandidateDTO `json:"suggestions,omitempty"`
}

// AmbiguousResponse is returned with 409 when a route endpoint matched
// several stations.
type AmbiguousResponse struct {
	Error      string         `json:"error"`
	Field      string         `json:"field"`
	Query      string         `json:"query"`
	Candidates []CandidateDTO `json:"candidates"`
}

// UnreachableResponse is returned with 422 when no itinerary exists.
type UnreachableResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// RouteResponse wraps a formatted itinerary.
type RouteResponse struct {
	itinerary.Record
	Summary string `json:"summary"`
	Version string `json:"snapshot_version"`
	Cached  bool   `json:"cached"`
}

// BoardDirection lists upcoming departures toward one terminal.
type BoardDirection struct {
	Line       string          `json:"line"`
	LineID     metro.LineID    `json:"line_id"`
	LineColor  string          `json:"line_color"`
	Towards    string          `json:"towards"`
	TowardsID  metro.StationID `json:"towards_id"`
	NextStop   string          `json:"next_stop"`
	Departures []string        `json:"departures"`
}

// BoardResponse is the schedule of one station.
type BoardResponse struct {
	Station    StationDTO       `json:"station"`
	DayType    metro.DayType    `json:"day_type"`
	From       string           `json:"from"`
	Open       bool             `json:"open"`
	First      string           `json:"first_departure,omitempty"`
	Last       string           `json:"last_departure,omitempty"`
	Directions []BoardDirection `json:"directions"`
}

// SnapshotInfo describes the data currently served.
type SnapshotInfo struct {
	Version    string    `json:"version"`
	Source     string    `json:"source"`
	LoadedAt   time.Time `json:"loaded_at"`
	Stations   int       `json:"stations"`
	Lines      int       `json:"lines"`
	Departures int       `json:"departures"`
}

// RefreshResponse reports an admin reload or refresh.
type RefreshResponse struct {
	Snapshot   SnapshotInfo          `json:"snapshot"`
	Pages      int                   `json:"pages,omitempty"`
	Failed     int                   `json:"failed,omitempty"`
	Rows       map[metro.DayType]int `json:"rows,omitempty"`
	DurationMS int64                 `json:"duration_ms"`
}
