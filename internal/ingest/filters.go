package ingest

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// queryDateLayout is the date format accepted on the query string.
const queryDateLayout = "2006-01-02"

// FiltersFromQuery parses the shared filter query parameters: start_date and
// end_date (YYYY-MM-DD, either optional) and districts (comma-separated).
// Route handlers apply the result via Snapshot.Filter before running any
// analyzer.
func FiltersFromQuery(q url.Values) (start, end time.Time, districts []string, err error) {
	if raw := q.Get("start_date"); raw != "" {
		start, err = time.Parse(queryDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", raw)
		}
	}
	if raw := q.Get("end_date"); raw != "" {
		end, err = time.Parse(queryDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", raw)
		}
	}
	if raw := q.Get("districts"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			d = strings.TrimSpace(d)
			if d != "" && d != "All Districts" {
				districts = append(districts, d)
			}
		}
	}
	return start, end, districts, nil
}
