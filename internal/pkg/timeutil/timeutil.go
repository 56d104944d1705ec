package timeutil

import (
	"fmt"
	"sort"
	"time"
)

// DashboardZone is the zone dashboard months are bucketed in
const DashboardZone = "Asia/Kolkata"

// MonthBucket is one calendar month of counted events
type MonthBucket struct {
	MonthKey   string // YYYY-MM
	MonthLabel string // January..December
	Count      int
}

// LoadZone loads name, falling back to a fixed IST offset when the host has
// no tzdata installed.
func LoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// GroupByMonth counts timestamps per calendar month in loc. Only months present
// in the input are returned, ordered by month key.
func GroupByMonth(timestamps []time.Time, loc *time.Location) []MonthBucket {
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[string]int)
	buckets := make([]MonthBucket, 0)
	for _, ts := range timestamps {
		local := ts.In(loc)
		key := local.Format("2006-01")
		if i, ok := index[key]; ok {
			buckets[i].Count++
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, MonthBucket{
			MonthKey:   key,
			MonthLabel: local.Month().String(),
			Count:      1,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].MonthKey < buckets[j].MonthKey
	})
	return buckets
}

// TimeAgo renders the elapsed time between from and now. Months are 30 days.
func TimeAgo(from, now time.Time) string {
	diff := now.Sub(from)
	if diff < 0 {
		diff = 0
	}

	s := int64(diff / time.Second)
	if s < 5 {
		return "just now"
	}
	if s < 60 {
		return fmt.Sprintf("%ds ago", s)
	}
	m := s / 60
	if m < 60 {
		return fmt.Sprintf("%dm ago", m)
	}
	h := m / 60
	if h < 24 {
		return fmt.Sprintf("%dh ago", h)
	}
	d := h / 24
	if d < 30 {
		return fmt.Sprintf("%dd ago", d)
	}
	mo := d / 30
	if mo < 12 {
		return fmt.Sprintf("%d months ago", mo)
	}
	return fmt.Sprintf("%d years ago", mo/12)
}
