package domain

import (
	"math"
	"strings"

	"github.com/twpayne/go-geom"
)

// DefaultRadiusMeters is the search radius used when a search omits one.
const DefaultRadiusMeters = 250

// metersPerDegreeLat is the length of one degree of latitude.
const metersPerDegreeLat = 111139.0

// QueryParams are the inputs to BuildQuery.
type QueryParams struct {
	Center       *Coordinates
	RadiusMeters int
	TimeRange    string
	Area         string
	Limit        int
	Order        SortOrder
}

// BuildQuery turns search parameters into a dataset filter.
//
// A named area wins over the radius. Without an area, a center point yields a
// bounding box of RadiusMeters around it. With neither, the filter is bounded
// by time only and may return records from anywhere in the dataset.
func BuildQuery(p QueryParams) QueryFilter {
	window := ResolveWindow(p.TimeRange)

	f := QueryFilter{
		Cutoff: window.Cutoff,
		Limit:  p.Limit,
		Order:  p.Order,
	}
	if f.Order == "" {
		f.Order = SortDescending
	}

	if area := normalizeArea(p.Area); area != "" {
		f.Area = area
		return f
	}

	if p.Center != nil {
		radius := p.RadiusMeters
		if radius <= 0 {
			radius = DefaultRadiusMeters
		}
		f.Box = BoundingBox(*p.Center, radius)
	}
	return f
}

// BoundingBox returns the axis-aligned box that encloses a circle of
// radiusMeters around center. Longitude degrees shrink away from the equator,
// so the longitude offset is widened by 1/cos(lat).
//
// Bounds are clamped to valid degrees. A circle crossing the antimeridian is
// not split, so the part beyond ±180° is not covered.
func BoundingBox(center Coordinates, radiusMeters int) *geom.Bounds {
	r := float64(radiusMeters)
	latOffset := r / metersPerDegreeLat

	minLon, maxLon := -180.0, 180.0
	if cosLat := math.Cos(toRadians(center.Lat)); cosLat > 1e-9 {
		lonOffset := r / (metersPerDegreeLat * cosLat)
		minLon = math.Max(-180, center.Lon-lonOffset)
		maxLon = math.Min(180, center.Lon+lonOffset)
	}

	minLat := math.Max(-90, center.Lat-latOffset)
	maxLat := math.Min(90, center.Lat+latOffset)

	return geom.NewBounds(geom.XY).Set(minLon, minLat, maxLon, maxLat)
}

// SortOrderFor picks the report-time ordering for a time range. The shortest
// window sorts newest first so a capped fetch keeps what just happened; longer
// windows sort oldest first so a capped fetch keeps a chronological history.
func SortOrderFor(timeRange string) SortOrder {
	if IsShortestWindow(timeRange) {
		return SortDescending
	}
	return SortAscending
}

func normalizeArea(area string) string {
	return strings.ToUpper(strings.TrimSpace(area))
}
