package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/xuri/excelize/v2"
)

// Wall-clock layouts seen in exports, day-first before ISO.
var saleTimeLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// TimestampRule turns an export timestamp into local business time.
// The export writes wall-clock times in Source; results are expressed in Local.
type TimestampRule struct {
	Source *time.Location
	Local  *time.Location
}

// NewTimestampRule builds a rule from two zone names.
func NewTimestampRule(source, local string) (TimestampRule, error) {
	src, err := time.LoadLocation(source)
	if err != nil {
		return TimestampRule{}, fmt.Errorf("failed to load source timezone %q: %w", source, err)
	}
	loc, err := time.LoadLocation(local)
	if err != nil {
		return TimestampRule{}, fmt.Errorf("failed to load timezone %q: %w", local, err)
	}
	return TimestampRule{Source: src, Local: loc}, nil
}

// Localize parses raw and converts it to the local zone. Timestamps that
// carry their own offset keep it; Excel serial numbers are read as wall clock
// in the source zone.
func (r TimestampRule) Localize(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(r.Local), nil
	}
	for _, layout := range saleTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.Source); err == nil {
			return t.In(r.Local), nil
		}
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		wall, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid excel date %q: %w", raw, err)
		}
		t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, r.Source)
		return t.In(r.Local), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
