// Package domain models the incident lookup core: turning an address search
// into a filtered dataset query, and turning loosely typed dataset records
// into ranked report cards.
//
// # Data Source
//
// Incidents come from the Seattle Police Department crime dataset published on
// the Socrata open data portal (data.seattle.gov, resource tazs-3rd5). Every
// field is delivered as a JSON string or omitted; nothing about a record's
// shape is guaranteed.
//
// # Dataset Conventions
//
// Coordinates:
//
//	"latitude" and "longitude" are decimal strings, e.g. "47.6205".
//	Incidents at protected locations carry the sentinel "REDACTED" instead.
//	Records with missing, redacted or non-numeric coordinates are dropped,
//	never defaulted to (0, 0), because a zero point corrupts distance ranking.
//
// Timestamps:
//
//	Floating local time without offset, sometimes with a fractional part:
//	"2026-01-04T14:30:00.000". The fraction is discarded before parsing.
//	The field was renamed between dataset versions ("report_datetime" in the
//	legacy schema, "report_date_time" in the NIBRS schema); both are read.
//
// Offense classification:
//
//	The most specific label available wins, in order:
//	nibrs_offense_code_description, offense, offense_sub_category,
//	offense_category, offense_parent_group, nibrs_crime_against_category.
//	A record with none of them is labelled "Incident Reported".
//
// # Time Windows
//
// Lookback windows are symbolic tokens ("1w", "1m", "1y", ...) mapped to a
// fixed number of days. Unknown tokens resolve to 30 days. See [ResolveWindow].
//
// # Search Area
//
// A radius search is approximated by an axis-aligned bounding box around the
// center point. The box only decides which records are fetched; the reported
// distance is always the haversine distance from the center. See [BuildQuery].
package domain
