package availability

import (
	"sort"

	"citasya/internal/models"
)

// AvailableDates returns the selectable dates in ascending calendar order.
// A date qualifies when at least one of its slots matches the employee filter
// (0 means no filter). Ordering is load-bearing: the UI presents dates
// chronologically and defaults to the first one.
func AvailableDates(idx *Index, employeeFilter int64) []string {
	dates := make([]string, 0, len(idx.days))
	for date, slots := range idx.days {
		if employeeFilter == 0 {
			dates = append(dates, date)
			continue
		}
		for _, slot := range slots {
			if slot.EmployeeID == employeeFilter {
				dates = append(dates, date)
				break
			}
		}
	}

	// ISO dates sort chronologically as strings.
	sort.Strings(dates)
	return dates
}

// TimesForDate returns the selectable slots for a date, ascending by time of
// day. Without an employee filter the times across all employees are collapsed
// by exact equality into bare-time slots: when the customer does not care who
// serves them only the union of free times matters. With a filter each slot
// stays bound to the employee.
func TimesForDate(idx *Index, date string, employeeFilter int64) []models.NormalizedSlot {
	raw := idx.SlotsOn(date)
	if len(raw) == 0 {
		return nil
	}

	var slots []models.NormalizedSlot
	if employeeFilter == 0 {
		seen := make(map[string]bool, len(raw))
		for _, s := range raw {
			if seen[s.Time] {
				continue
			}
			seen[s.Time] = true
			slots = append(slots, models.NormalizedSlot{Time: s.Time})
		}
	} else {
		seen := make(map[string]bool, len(raw))
		for _, s := range raw {
			if s.EmployeeID != employeeFilter || seen[s.Time] {
				continue
			}
			seen[s.Time] = true
			slots = append(slots, models.NormalizedSlot{Time: s.Time, EmployeeID: s.EmployeeID})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
	return slots
}

// HasSlot reports whether the exact (date, time) pairing is selectable under
// the employee filter. The wizard uses it to reject choices that fell out of
// the feed between render and selection.
func HasSlot(idx *Index, date, timeOfDay string, employeeFilter int64) bool {
	for _, slot := range TimesForDate(idx, date, employeeFilter) {
		if slot.Time == timeOfDay {
			return true
		}
	}
	return false
}
