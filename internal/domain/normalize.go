package domain

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultCategory labels records that carry no offense classification.
	DefaultCategory = "Incident Reported"

	// DateUnknown replaces a missing report timestamp.
	DateUnknown = "Date Unknown"

	// EmptyMessage explains an empty result to the caller.
	EmptyMessage = "No incidents reported near this address in the selected time range."

	displayDateLayout = "Jan 02, 2006, 03:04 PM"
	redactedSentinel  = "REDACTED"
)

// Report groups mirror the map legend of the frontend.
const (
	GroupViolent  = "violent"
	GroupProperty = "property"
	GroupOther    = "other"
)

var (
	// errMissingCoordinate marks a record without a latitude or longitude value.
	errMissingCoordinate = errors.New("missing coordinate")

	// errRedactedCoordinate marks a record whose location was withheld upstream.
	errRedactedCoordinate = errors.New("redacted coordinate")
)

// categoryFields lists offense classification fields from most to least specific.
var categoryFields = []string{
	"nibrs_offense_code_description",
	"offense",
	"offense_sub_category",
	"offense_category",
	"offense_parent_group",
	"nibrs_crime_against_category",
}

// timestampFields lists report timestamp fields across dataset schema versions.
var timestampFields = []string{
	"report_date_time",
	"report_datetime",
}

var (
	violentKeywords  = []string{"assault", "homicide", "weapon", "robbery"}
	propertyKeywords = []string{"theft", "burglary", "stolen", "property"}
)

// Normalize converts raw dataset records into report cards ranked by distance
// from center. Records with unusable coordinates are dropped and counted in
// SearchResult.Dropped; they never fail the batch.
func Normalize(records []RawIncident, center Coordinates) SearchResult {
	if len(records) == 0 {
		return SearchResult{
			Status:  StatusEmpty,
			Reports: []ReportCard{},
			Center:  &center,
			Message: EmptyMessage,
		}
	}

	reports := make([]ReportCard, 0, len(records))
	dropped := 0
	for _, rec := range records {
		card, err := ToReportCard(rec, center)
		if err != nil {
			dropped++
			continue
		}
		reports = append(reports, card)
	}

	slices.SortStableFunc(reports, func(a, b ReportCard) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})

	return SearchResult{
		Status:  StatusSuccess,
		Reports: reports,
		Center:  &center,
		Dropped: dropped,
	}
}

// ToReportCard normalizes a single record. It returns an error only when the
// record's coordinates cannot be used.
func ToReportCard(rec RawIncident, center Coordinates) (ReportCard, error) {
	lat, err := parseCoordinate(rec["latitude"])
	if err != nil {
		return ReportCard{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := parseCoordinate(rec["longitude"])
	if err != nil {
		return ReportCard{}, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ReportCard{}, fmt.Errorf("coordinate out of range: %g,%g", lat, lon)
	}

	dist := Distance(center.Lat, center.Lon, lat, lon)
	category := ResolveCategory(rec)

	return ReportCard{
		Category:       category,
		Group:          ClassifyGroup(category),
		FormattedDate:  FormatReportDate(firstString(rec, timestampFields)),
		DistanceLabel:  formatMeters(dist),
		DistanceMeters: dist,
		Coords:         [2]float64{lat, lon},
	}, nil
}

// ResolveCategory returns the most specific offense label on the record, or
// DefaultCategory when none is present.
func ResolveCategory(rec RawIncident) string {
	if s := firstString(rec, categoryFields); s != "" {
		return s
	}
	return DefaultCategory
}

// ClassifyGroup buckets a category into violent, property or other.
func ClassifyGroup(category string) string {
	c := strings.ToLower(category)
	for _, kw := range violentKeywords {
		if strings.Contains(c, kw) {
			return GroupViolent
		}
	}
	for _, kw := range propertyKeywords {
		if strings.Contains(c, kw) {
			return GroupProperty
		}
	}
	return GroupOther
}

// FormatReportDate renders a dataset timestamp as "Jan 04, 2026, 02:30 PM".
// Sub-second fractions are discarded. An empty input yields DateUnknown; an
// unparseable one is returned unchanged so the caller still sees something.
func FormatReportDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DateUnknown
	}

	trimmed, _, _ := strings.Cut(raw, ".")
	if t, err := time.Parse(CutoffLayout, trimmed); err == nil {
		return t.Format(displayDateLayout)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(displayDateLayout)
	}
	return raw
}

func formatMeters(m int) string {
	return strconv.Itoa(m) + "m away"
}

// parseCoordinate reads a coordinate that may arrive as a JSON string or number.
func parseCoordinate(v any) (float64, error) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, errMissingCoordinate
	case float64:
		f = val
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, errMissingCoordinate
		}
		if strings.EqualFold(s, redactedSentinel) {
			return 0, errRedactedCoordinate
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported coordinate type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite coordinate %v", f)
	}
	return f, nil
}

// firstString returns the first non-blank string value among keys.
func firstString(rec RawIncident, keys []string) string {
	for _, k := range keys {
		s, ok := rec[k].(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" && s != "-" {
			return s
		}
	}
	return ""
}
