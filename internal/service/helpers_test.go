package service_test

import (
	"time"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// tripsOf builds n trips, each ten days long, starting on consecutive months.
func tripsOf(n int) domain.TripSet {
	set := make(domain.TripSet, 0, n)
	for i := 0; i < n; i++ {
		start := date(2023, time.Month(i+1), 1)
		set = append(set, domain.NewTrip("trip", start, start.AddDate(0, 0, 10), domain.DefaultEmoji))
	}
	return set
}
