package domain

import "time"

// CalculateAge returns the age in full years at the given reference time.
// Uses calendar arithmetic (AddDate) for accurate birthday-boundary handling:
// the year counter only advances once this year's birthday has occurred.
//
// Example:
//
//	birthDate := time.Date(2010, 3, 15, 0, 0, 0, 0, time.UTC)
//	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) // Exactly 16th birthday
//	CalculateAge(birthDate, now) // returns 16
func CalculateAge(birthDate, now time.Time) int {
	birthDate = birthDate.UTC()
	now = now.UTC()

	years := now.Year() - birthDate.Year()
	if years < 0 {
		return years
	}
	if birthDate.AddDate(years, 0, 0).After(now) {
		years--
	}
	return years
}
