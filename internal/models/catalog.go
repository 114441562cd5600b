package models

// Service is a bookable offering. Immutable once fetched for the session.
type Service struct {
	ID              int64   `json:"id"`
	Name            string  `json:"nombre"`
	DurationMinutes int     `json:"duracion"`
	Price           float64 `json:"precio"`
}

// Valid reports whether the catalog record is well-formed enough to offer.
// Malformed records are dropped at the boundary, they never abort a fetch.
func (s Service) Valid() bool {
	return s.ID > 0 && s.Name != "" && ValidDuration(s.DurationMinutes) && s.Price >= 0
}

// Employee is a staff member and the set of services they can perform.
type Employee struct {
	ID         int64   `json:"id"`
	Name       string  `json:"nombre"`
	ServiceIDs []int64 `json:"servicios"`
}

// CanPerform reports whether the employee offers the given service.
func (e Employee) CanPerform(serviceID int64) bool {
	for _, id := range e.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}
