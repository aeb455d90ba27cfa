package markethours

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLatestTradingDate(t *testing.T) {
	// August 2026: the 18th is a Tuesday, the 22nd/23rd a weekend.
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "weekday before close uses previous weekday",
			now:  time.Date(2026, 8, 18, 10, 30, 0, 0, eastern),
			want: date(2026, 8, 17),
		},
		{
			name: "weekday at close uses today",
			now:  time.Date(2026, 8, 18, 16, 0, 0, 0, eastern),
			want: date(2026, 8, 18),
		},
		{
			name: "weekday after close uses today",
			now:  time.Date(2026, 8, 18, 19, 45, 0, 0, eastern),
			want: date(2026, 8, 18),
		},
		{
			name: "monday morning skips back over the weekend",
			now:  time.Date(2026, 8, 17, 9, 0, 0, 0, eastern),
			want: date(2026, 8, 14),
		},
		{
			name: "saturday uses friday",
			now:  time.Date(2026, 8, 22, 12, 0, 0, 0, eastern),
			want: date(2026, 8, 21),
		},
		{
			name: "sunday uses friday",
			now:  time.Date(2026, 8, 23, 12, 0, 0, 0, eastern),
			want: date(2026, 8, 21),
		},
	}

	for _, c := range cases {
		got := LatestTradingDate(c.now)
		if !got.Equal(c.want) {
			t.Errorf("%s: got %s, want %s", c.name, got.Format("2006-01-02"), c.want.Format("2006-01-02"))
		}
	}
}

func TestLatestTradingDateConvertsZone(t *testing.T) {
	// 21:00 UTC on a Tuesday is 17:00 ET, so the session has closed.
	now := time.Date(2026, 8, 18, 21, 0, 0, 0, time.UTC)
	got := LatestTradingDate(now)
	if !got.Equal(date(2026, 8, 18)) {
		t.Errorf("got %s, want 2026-08-18", got.Format("2006-01-02"))
	}
}

func TestCivilDateStripsTime(t *testing.T) {
	in := time.Date(2026, 8, 18, 15, 4, 5, 123, eastern)
	got := civilDate(in)
	if got.Hour() != 0 || got.Location() != time.UTC {
		t.Errorf("expected UTC midnight, got %v", got)
	}
}
