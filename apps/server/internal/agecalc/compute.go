// Package agecalc implements the age-and-space-travel action: it breaks the
// time since a birth date into calendar components and estimates how far the
// person has travelled through space in that time.
package agecalc

import (
	"fmt"
	"time"
)

// Speeds Earth carries its passengers at, in km/h: the orbit around the Sun
// and the solar system's movement through the galaxy.
const (
	orbitSpeedKMH  = 107226
	galaxySpeedKMH = 720000
)

const lightYearKM = 9.461e12

// Age is the elapsed time since birth broken into display components.
// Months are approximated as 30 days.
type Age struct {
	Years   int
	Months  int
	Days    int
	Hours   int
	Minutes int
}

// ComputeAge breaks now-birth into components. Whole years are counted by
// walking birthday anniversaries, so leap years are handled exactly; a
// February 29th birth anniversaries on February 28th in common years.
func ComputeAge(birth, now time.Time) Age {
	var age Age
	for anniversary(birth, age.Years+1).Before(now) || anniversary(birth, age.Years+1).Equal(now) {
		age.Years++
	}

	sinceAnniversary := now.Sub(anniversary(birth, age.Years))
	days := int(sinceAnniversary.Hours() / 24)
	age.Months = days / 30
	age.Days = days % 30

	// Sub-day remainder of the full difference.
	secs := int(now.Sub(birth).Seconds()) % (24 * 3600)
	age.Hours = secs / 3600
	age.Minutes = (secs % 3600) / 60
	return age
}

// anniversary returns the birth instant shifted forward n years, clamping
// February 29th to the 28th in common years.
func anniversary(birth time.Time, n int) time.Time {
	year := birth.Year() + n
	day := birth.Day()
	if birth.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, birth.Month(), day,
		birth.Hour(), birth.Minute(), birth.Second(), birth.Nanosecond(), birth.Location())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// SpaceTravelKM estimates the distance travelled through space during the
// given age, combining Earth's solar orbit with the solar system's galactic
// movement.
func SpaceTravelKM(age Age) float64 {
	totalHours := float64(age.Years)*365.25*24 +
		float64(age.Months)*30*24 +
		float64(age.Days)*24 +
		float64(age.Hours) +
		float64(age.Minutes)/60
	return totalHours * (orbitSpeedKMH + galaxySpeedKMH)
}

// FormatDistance renders a distance with a unit matched to its magnitude.
func FormatDistance(km float64) string {
	switch {
	case km > lightYearKM:
		return fmt.Sprintf("%.2f light years", km/lightYearKM)
	case km > 1e12:
		return fmt.Sprintf("%.2f trillion km", km/1e12)
	case km > 1e9:
		return fmt.Sprintf("%.2f billion km", km/1e9)
	case km > 1e6:
		return fmt.Sprintf("%.2f million km", km/1e6)
	default:
		return fmt.Sprintf("%.2f km", km)
	}
}
