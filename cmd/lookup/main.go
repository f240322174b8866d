// Command lookup runs a single incident search from the terminal using the
// same configuration as the service.
//
// Usage:
//
//	go run ./cmd/lookup -address "400 Broad St, Seattle" -radius 500 -range 1m
//	go run ./cmd/lookup -address "Pike Place Market" -neighborhood "downtown commercial" -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/couchcryptid/incident-lookup-service/internal/adapter/geocoding"
	"github.com/couchcryptid/incident-lookup-service/internal/adapter/socrata"
	"github.com/couchcryptid/incident-lookup-service/internal/config"
	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
	"github.com/couchcryptid/incident-lookup-service/internal/pipeline"
)

// Exit codes.
const (
	exitOK          = 0
	exitNoResult    = 1
	exitUsage       = 2
	exitUnavailable = 3
)

type options struct {
	address      string
	radius       int
	timeRange    string
	neighborhood string
	asJSON       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}
	// Diagnostics go to stderr so -json output stays machine readable.
	cfg.LogFormat = "text"
	logger := observability.NewLoggerTo(stderr, cfg)
	metrics := observability.NewMetrics()

	source := socrata.NewClient(socrata.Options{
		ResourceURL:  cfg.DatasetURL,
		AppToken:     cfg.DatasetAppToken,
		Timeout:      cfg.DatasetTimeout,
		DefaultLimit: cfg.DatasetLimit,
		Location:     cfg.DatasetLocation,
	}, metrics, logger)
	searcher := pipeline.New(geocoding.New(cfg, metrics, logger), source, logger, metrics, pipeline.Options{
		Limit:         cfg.DatasetLimit,
		DefaultRadius: cfg.DefaultRadius,
	})

	result, err := searcher.Search(ctx, pipeline.SearchRequest{
		Address:      opts.address,
		RadiusMeters: opts.radius,
		TimeRange:    opts.timeRange,
		Neighborhood: opts.neighborhood,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if opts.asJSON {
		err = renderJSON(stdout, result)
	} else {
		err = renderTable(stdout, result)
	}
	if err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return exitNoResult
	}
	return exitCode(result.Status)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.address, "address", "", "street address or landmark to search around (required)")
	fs.IntVar(&opts.radius, "radius", 0, "search radius in meters, 1-5000 (default from DEFAULT_RADIUS)")
	fs.StringVar(&opts.timeRange, "range", domain.DefaultTimeRange, "lookback window: 1w, 2w, 1m, 3m, 6m, 1y, 3y")
	fs.StringVar(&opts.neighborhood, "neighborhood", "", "search a named neighborhood instead of the radius")
	fs.BoolVar(&opts.asJSON, "json", false, "print the API response payload as JSON")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.address == "" {
		return options{}, errors.New("-address is required")
	}
	return opts, nil
}

func exitCode(status domain.Status) int {
	switch status {
	case domain.StatusSuccess, domain.StatusEmpty:
		return exitOK
	case domain.StatusUnavailable:
		return exitUnavailable
	default:
		return exitNoResult
	}
}

func renderJSON(w io.Writer, result domain.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func renderTable(w io.Writer, result domain.SearchResult) error {
	if result.Center != nil {
		fmt.Fprintf(w, "center: %.5f, %.5f\n", result.Center.Lat, result.Center.Lon)
	}
	if len(result.Reports) == 0 {
		msg := result.Message
		if msg == "" {
			msg = string(result.Status)
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTANCE\tGROUP\tDATE\tTYPE")
	for _, r := range result.Reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.DistanceLabel, r.Group, r.FormattedDate, r.Category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d incidents\n", len(result.Reports))
	return err
}
