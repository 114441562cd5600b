package models

// Reservation is the server-owned record returned after submission or lookup.
// The client never constructs it directly.
type Reservation struct {
	ID           string `json:"id"`
	ServiceName  string `json:"servicio"`
	Date         string `json:"fecha"`
	Time         string `json:"hora"`
	EmployeeName string `json:"profesional,omitempty"`
	CustomerName string `json:"clienteNombre"`
	Cedula       string `json:"cedula"`
	Status       string `json:"estado"`
}

// ReservationSummary holds the display fields shown on the confirmation card.
type ReservationSummary struct {
	ReservationID string `json:"id"`
	ServiceName   string `json:"servicio"`
	Date          string `json:"fecha"`
	Time          string `json:"hora"`
	EmployeeName  string `json:"profesional"`
}

// CancellationRequest authorizes a single cancel action. It is created on
// lookup submission and discarded once the confirm action resolves.
type CancellationRequest struct {
	ReservationID string `json:"idCita"`
	Cedula        string `json:"cedula"`
}
