package repository

import (
	"time"

	"IdxLens/internal/domain/models"
)

// ResolveRange fills a missing bound from the store bounds. Zero from or to
// means "from the first record" or "up to the last one".
func ResolveRange(from, to, first, last time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = first
	}
	if to.IsZero() {
		to = last
	}
	return models.TruncateDate(from), models.TruncateDate(to)
}

// LookbackRange returns the window of days calendar days ending at last.
func LookbackRange(last time.Time, days int) (time.Time, time.Time) {
	last = models.TruncateDate(last)
	if days <= 0 {
		return time.Time{}, last
	}
	return last.AddDate(0, 0, -(days - 1)), last
}
