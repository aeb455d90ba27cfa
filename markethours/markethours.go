// Package markethours maps wall-clock time to the latest completed or
// in-progress US equity trading date.
package markethours

import (
	"log"
	"time"
)

const marketCloseHour = 16 // 16:00 ET - market close

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// No tzdata available; EST without DST is the closest we can get.
		log.Printf("⚠️  Failed to load America/New_York tz, falling back to fixed EST: %v", err)
		loc = time.FixedZone("EST", -5*60*60)
	}
	eastern = loc
}

// LatestTradingDate returns the most recent civil date on which US equity
// markets have had (or are currently having) a regular session:
//
//   - weekday before 16:00 ET: the previous weekday
//   - weekday at or after 16:00 ET: today
//   - weekend: the preceding Friday
//
// Exchange holidays are deliberately not modeled; callers tolerate "no data
// for this date" from the vendor instead.
func LatestTradingDate(now time.Time) time.Time {
	local := now.In(eastern)

	switch local.Weekday() {
	case time.Saturday:
		return civilDate(local.AddDate(0, 0, -1))
	case time.Sunday:
		return civilDate(local.AddDate(0, 0, -2))
	}

	if local.Hour() >= marketCloseHour {
		return civilDate(local)
	}
	return civilDate(previousWeekday(local))
}

// previousWeekday steps back one day at a time until it lands on a weekday.
func previousWeekday(t time.Time) time.Time {
	prev := t.AddDate(0, 0, -1)
	for prev.Weekday() == time.Saturday || prev.Weekday() == time.Sunday {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// civilDate strips the time-of-day, keeping only the calendar date (UTC
// midnight, which is how trading dates are stored).
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
