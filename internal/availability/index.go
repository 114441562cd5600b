package availability

import (
	"time"

	"citasya/internal/models"

	"github.com/rs/zerolog"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Index holds the backend's availability feed reshaped into a structure keyed
// by date. No filtering or deduplication across employees happens here; the
// resolver does that per query.
type Index struct {
	days map[string][]models.RawSlot
}

// NewIndex normalizes a raw feed. Parsing is tolerant: a record with an
// unparseable date or time, or a non-positive employee id, is dropped and
// logged, so a single bad record never blanks the whole calendar. Exact
// duplicates (same date, time and employee) collapse into one.
func NewIndex(feed []models.FeedDay, logger *zerolog.Logger) *Index {
	idx := &Index{days: make(map[string][]models.RawSlot, len(feed))}

	for _, day := range feed {
		if _, err := time.Parse(dateLayout, day.Date); err != nil {
			if logger != nil {
				logger.Debug().Str("fecha", day.Date).Msg("availability: dropping day with bad date")
			}
			continue
		}

		for _, slot := range day.Slots {
			if _, err := time.Parse(timeLayout, slot.Time); err != nil {
				if logger != nil {
					logger.Debug().Str("fecha", day.Date).Str("hora", slot.Time).Msg("availability: dropping slot with bad time")
				}
				continue
			}
			if slot.EmployeeID <= 0 {
				if logger != nil {
					logger.Debug().Str("fecha", day.Date).Str("hora", slot.Time).Int64("empleado_id", slot.EmployeeID).Msg("availability: dropping slot with bad employee")
				}
				continue
			}

			raw := models.RawSlot{Time: slot.Time, EmployeeID: slot.EmployeeID}
			if containsSlot(idx.days[day.Date], raw) {
				continue
			}
			idx.days[day.Date] = append(idx.days[day.Date], raw)
		}

		// A day whose every slot was dropped is not selectable.
		if len(idx.days[day.Date]) == 0 {
			delete(idx.days, day.Date)
		}
	}

	return idx
}

// SlotsOn returns the raw slots recorded for a date.
func (idx *Index) SlotsOn(date string) []models.RawSlot {
	return idx.days[date]
}

// Len returns the number of selectable dates.
func (idx *Index) Len() int {
	return len(idx.days)
}

func containsSlot(slots []models.RawSlot, s models.RawSlot) bool {
	for _, existing := range slots {
		if existing == s {
			return true
		}
	}
	return false
}
