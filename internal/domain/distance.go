package domain

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371.0 * 1000

// Distance returns the great-circle distance in whole meters between two
// points given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) int {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dlat := toRadians(lat2 - lat1)
	dlon := toRadians(lon2 - lon1)

	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dlon/2), 2)

	// Rounding can push a slightly past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Asin(math.Sqrt(a))

	return int(math.Round(earthRadiusMeters * c))
}

// DistanceBetween is Distance for two coordinate pairs.
func DistanceBetween(a, b Coordinates) int {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
