package domain

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RawIncident is one record as returned by the dataset. Field presence and
// value types are not guaranteed, so values are kept untyped and parsed on read.
type RawIncident map[string]any

// SortOrder controls how the dataset orders records by report time before the
// record limit is applied.
type SortOrder string

const (
	SortAscending  SortOrder = "ASC"
	SortDescending SortOrder = "DESC"
)

// QueryFilter describes which incidents to fetch. Area takes priority over Box;
// when both are empty only the time cutoff applies.
type QueryFilter struct {
	Cutoff time.Time
	Area   string       // upper-cased named area, e.g. "CAPITOL HILL"
	Box    *geom.Bounds // X = longitude, Y = latitude
	Limit  int
	Order  SortOrder
}

// HasSpatialPredicate reports whether the filter narrows results by location.
func (f QueryFilter) HasSpatialPredicate() bool {
	return f.Area != "" || f.Box != nil
}

// ReportCard is the display-ready form of one incident.
type ReportCard struct {
	Category       string     `json:"type"`
	Group          string     `json:"group"`
	FormattedDate  string     `json:"date"`
	DistanceLabel  string     `json:"distance"`
	DistanceMeters int        `json:"raw_dist"`
	Coords         [2]float64 `json:"coords"` // [lat, lon]
}

// Status is the outcome class of a search.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusEmpty       Status = "empty"
	StatusError       Status = "error"
	StatusUnavailable Status = "unavailable"
)

// SearchResult is the outcome of one search. Reports are sorted ascending by
// DistanceMeters.
type SearchResult struct {
	Status  Status       `json:"status"`
	Reports []ReportCard `json:"reports"`
	Center  *Coordinates `json:"metadata,omitempty"`
	Message string       `json:"message,omitempty"`

	// Dropped counts records discarded for unusable coordinates.
	Dropped int `json:"-"`
}
