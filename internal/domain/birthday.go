package domain

import (
	"slices"
	"time"
)

const (
	// DefaultBirthdayWindow is the look-ahead in days when none is given.
	DefaultBirthdayWindow = 7
	// MaxBirthdayWindow bounds the look-ahead so the window never spans more
	// than one full year.
	MaxBirthdayWindow = 366
)

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// anniversary returns the birthday's date in the given year. Feb 29 falls on
// Feb 28 in common years.
func anniversary(birthday time.Time, year int) time.Time {
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextBirthday returns the first anniversary of birthday on or after today.
func NextBirthday(birthday, today time.Time) time.Time {
	today = Date(today)
	next := anniversary(birthday, today.Year())
	if next.Before(today) {
		next = anniversary(birthday, today.Year()+1)
	}
	return next
}

// UpcomingBirthdays filters contacts to those whose next birthday falls in
// the inclusive window [today, today+days], ordered by that date and then id.
func UpcomingBirthdays(contacts []Contact, today time.Time, days int) []Contact {
	today = Date(today)
	end := today.AddDate(0, 0, days)

	type hit struct {
		next    time.Time
		contact Contact
	}
	hits := make([]hit, 0, len(contacts))
	for _, c := range contacts {
		if c.Birthday == nil {
			continue
		}
		next := NextBirthday(*c.Birthday, today)
		if next.After(end) {
			continue
		}
		hits = append(hits, hit{next: next, contact: c})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := a.next.Compare(b.next); c != 0 {
			return c
		}
		switch {
		case a.contact.ID < b.contact.ID:
			return -1
		case a.contact.ID > b.contact.ID:
			return 1
		}
		return 0
	})

	out := make([]Contact, len(hits))
	for i, h := range hits {
		out[i] = h.contact
	}
	return out
}
