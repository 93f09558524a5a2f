package helpers

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// TimeRange represents a start and end time for a query. Zero values are
// open ends.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// TimeFlags holds the flag values for time range parsing.
type TimeFlags struct {
	Since string
	From  string
	To    string
}

// AddFlags adds time range flags to a FlagSet.
func (f *TimeFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Since, "since", "1h", "Show windows since duration (e.g. 5m, 1h); 0 for all")
	flags.StringVar(&f.From, "from", "", "Start time (RFC3339 or 'now')")
	flags.StringVar(&f.To, "to", "", "End time (RFC3339 or 'now')")
}

// Parse returns a TimeRange based on the flag values. --from/--to take
// precedence over --since.
func (f *TimeFlags) Parse(now time.Time) (*TimeRange, error) {
	if f.From != "" {
		start, err := parseTime(f.From, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --from time: %w", err)
		}

		end := now
		if f.To != "" {
			end, err = parseTime(f.To, now)
			if err != nil {
				return nil, fmt.Errorf("invalid --to time: %w", err)
			}
		}

		if end.Before(start) {
			return nil, fmt.Errorf("end time cannot be before start time")
		}

		return &TimeRange{Start: start, End: end}, nil
	}

	if f.Since == "" {
		return &TimeRange{Start: now.Add(-time.Hour), End: now}, nil
	}

	duration, err := time.ParseDuration(f.Since)
	if err != nil {
		return nil, fmt.Errorf("invalid --since duration: %w", err)
	}
	if duration < 0 {
		return nil, fmt.Errorf("--since must not be negative")
	}
	if duration == 0 {
		return &TimeRange{}, nil
	}

	return &TimeRange{Start: now.Add(-duration), End: now}, nil
}

func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q (use RFC3339)", s)
}
