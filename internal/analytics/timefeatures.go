package analytics

import (
	"fmt"
	"time"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
)

// matchTimeLayout is the timestamp format of the ledger exports, always UTC.
const matchTimeLayout = "2006-01-02 15:04:05"

// TimeNormalizer parses UTC timestamp strings and derives local-time
// features (hour, ISO weekday, year, "YYYY-MM") in a target zone.
type TimeNormalizer struct {
	loc *time.Location
}

func NewTimeNormalizer(tz string) (*TimeNormalizer, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return &TimeNormalizer{loc: loc}, nil
}

// Apply parses rec.MatchTimeUTC and fills the derived time fields. Returns
// false when the timestamp does not parse; the caller decides whether the
// row is dropped (it is, when the time column exists at all).
func (n *TimeNormalizer) Apply(rec *domain.EnrichedRecord) bool {
	utc, err := time.ParseInLocation(matchTimeLayout, rec.MatchTimeUTC, time.UTC)
	if err != nil {
		return false
	}

	local := utc.In(n.loc)
	rec.MatchTimeParsed = &utc
	rec.MatchTimeLocal = &local
	rec.HourLocal = local.Hour()
	rec.WeekdayLocal = isoWeekday(local.Weekday())
	rec.Year = local.Year()
	rec.YearMonth = local.Format("2006-01")
	return true
}

// isoWeekday maps Go's Sunday-based weekday to ISO numbering
// (Monday=1 .. Sunday=7), the convention the derived tables use.
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

var weekdayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

// WeekdayName renders an ISO weekday number; unknown values (e.g. a missing
// mode) map to "Unknown".
func WeekdayName(iso int) string {
	if name, ok := weekdayNames[iso]; ok {
		return name
	}
	return "Unknown"
}
