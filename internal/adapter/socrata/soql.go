package socrata

import (
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
)

// Dataset column names used in SoQL clauses.
const (
	fieldReportTime   = "report_date_time"
	fieldNeighborhood = "neighborhood"
	fieldLatitude     = "latitude"
	fieldLongitude    = "longitude"
)

// redacted marks coordinates withheld for protected locations.
const redacted = "REDACTED"

// buildWhere renders a filter as a SoQL $where clause. The cutoff is formatted
// in loc because the dataset stores floating local timestamps.
//
// Coordinates are stored as text, so range comparisons cast with ::number and
// REDACTED rows are excluded first to keep the cast from failing.
func buildWhere(f domain.QueryFilter, loc *time.Location) string {
	cutoff := f.Cutoff
	if loc != nil {
		cutoff = cutoff.In(loc)
	}

	clauses := []string{
		fieldReportTime + " > " + quote(cutoff.Format(domain.CutoffLayout)),
	}

	switch {
	case f.Area != "":
		clauses = append(clauses, fieldNeighborhood+" = "+quote(f.Area))
	case f.Box != nil:
		clauses = append(clauses,
			fieldLatitude+" != "+quote(redacted),
			fieldLongitude+" != "+quote(redacted),
			between(fieldLatitude, f.Box.Min(1), f.Box.Max(1)),
			between(fieldLongitude, f.Box.Min(0), f.Box.Max(0)),
		)
	}

	return strings.Join(clauses, " AND ")
}

func buildOrder(order domain.SortOrder) string {
	if order == domain.SortAscending {
		return fieldReportTime + " ASC"
	}
	return fieldReportTime + " DESC"
}

func between(field string, lo, hi float64) string {
	return field + "::number between " + formatDegrees(lo) + " and " + formatDegrees(hi)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// quote wraps s in a SoQL string literal, doubling embedded single quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
