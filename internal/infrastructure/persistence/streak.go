package persistence

import "time"

const dateLayout = "2006-01-02"

// countStreak counts consecutive calendar days in dates, which must be
// distinct "YYYY-MM-DD" strings sorted descending. A streak is current if its
// newest day is today or yesterday; otherwise it is broken and counts as 0.
func countStreak(dates []string) int {
	return countStreakAt(dates, time.Now().UTC())
}

func countStreakAt(dates []string, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	head, err := time.Parse(dateLayout, dates[0])
	if err != nil {
		return 0
	}

	today := now.Truncate(24 * time.Hour)
	gap := int(today.Sub(head).Hours() / 24)
	if gap > 1 {
		return 0
	}

	streak := 1
	prev := head
	for _, d := range dates[1:] {
		cur, err := time.Parse(dateLayout, d)
		if err != nil {
			break
		}
		if int(prev.Sub(cur).Hours()/24) != 1 {
			break
		}
		streak++
		prev = cur
	}
	return streak
}
