package models

import "strings"

// BookingDraft is the in-progress reservation owned by the wizard. Fields set
// later in the step order may not be populated before their prerequisites;
// changing a prerequisite clears everything that depends on it.
type BookingDraft struct {
	ServiceID    int64  `json:"servicioId"`
	EmployeeID   int64  `json:"empleadoId,omitempty"`
	Date         string `json:"fecha"`
	Time         string `json:"hora"`
	CustomerName string `json:"clienteNombre"`
	Cedula       string `json:"cedula"`
	Email        string `json:"correo"`
	Phone        string `json:"telefono"`
}

// SetService records the chosen service and clears every dependent field.
func (d *BookingDraft) SetService(serviceID int64) {
	d.ServiceID = serviceID
	d.EmployeeID = 0
	d.Date = ""
	d.Time = ""
}

// SetEmployee records the employee filter (0 means "any employee") and clears
// date and time, since the slot lists depend on the filter.
func (d *BookingDraft) SetEmployee(employeeID int64) {
	d.EmployeeID = employeeID
	d.Date = ""
	d.Time = ""
}

// SetDate records the chosen date and clears the time.
func (d *BookingDraft) SetDate(date string) {
	d.Date = date
	d.Time = ""
}

// SetTime records the chosen time of day.
func (d *BookingDraft) SetTime(t string) {
	d.Time = t
}

// HasSlot reports whether date and time are both chosen.
func (d *BookingDraft) HasSlot() bool {
	return d.Date != "" && d.Time != ""
}

// HasCustomerDetails reports whether all customer fields are present and
// non-empty. Format validation beyond that is the UI's concern.
func (d *BookingDraft) HasCustomerDetails() bool {
	for _, v := range []string{d.CustomerName, d.Cedula, d.Email, d.Phone} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Complete reports whether the draft can be submitted.
func (d *BookingDraft) Complete() bool {
	return d.ServiceID != 0 && d.HasSlot() && d.HasCustomerDetails()
}
