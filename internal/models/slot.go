package models

// FeedSlot is one raw availability record as delivered by the backend:
// a time of day offered by a specific employee.
type FeedSlot struct {
	Time       string `json:"hora"`
	EmployeeID int64  `json:"empleadoId"`
}

// FeedDay is the backend's per-day availability payload. A day may carry
// several slots sharing the same time across different employees.
type FeedDay struct {
	Date  string     `json:"fecha"`
	Slots []FeedSlot `json:"horarios"`
}

// RawSlot is a validated availability record inside the index.
type RawSlot struct {
	Time       string `json:"hora"`
	EmployeeID int64  `json:"empleadoId"`
}

// NormalizedSlot is the deduplicated unit the UI renders. EmployeeID == 0 is
// the "any employee" case: at least one employee is free at that time and the
// backend resolves who serves the booking. A non-zero EmployeeID pins the slot
// to that employee.
type NormalizedSlot struct {
	Time       string `json:"hora"`
	EmployeeID int64  `json:"empleadoId,omitempty"`
}

// Pinned reports whether the slot is bound to a specific employee.
func (s NormalizedSlot) Pinned() bool {
	return s.EmployeeID != 0
}
