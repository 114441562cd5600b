package models

// WizardState is the persisted state of one booking wizard session. It is
// owned by exactly one flow instance; the store serializes it as JSON.
type WizardState struct {
	SessionID string       `json:"session_id"`
	CompanyID string       `json:"company_id"`
	Step      string       `json:"step"`
	Draft     BookingDraft `json:"draft"`

	// Feed is the last availability payload accepted for the draft's filter.
	// AvailabilitySeq is bumped on every filter change; a fetch started under
	// an older sequence is discarded on arrival (last-filter-wins).
	Feed            []FeedDay `json:"feed,omitempty"`
	AvailabilitySeq int64     `json:"availability_seq"`
	FetchFailed     bool      `json:"fetch_failed,omitempty"`

	// Summary is set once the wizard reaches StepConfirmed.
	Summary *ReservationSummary `json:"summary,omitempty"`
}

// NewWizardState creates a fresh session at the first step.
func NewWizardState(sessionID, companyID string) *WizardState {
	return &WizardState{
		SessionID: sessionID,
		CompanyID: companyID,
		Step:      StepServiceSelection,
	}
}

// Confirmed reports whether the session reached its terminal step.
func (s *WizardState) Confirmed() bool {
	return s.Step == StepConfirmed
}

// CancelState is the persisted state of one cancellation flow instance, keyed
// by company and reservation id.
type CancelState struct {
	CompanyID string              `json:"company_id"`
	Step      string              `json:"step"`
	Request   CancellationRequest `json:"request"`
	Snapshot  *Reservation        `json:"snapshot,omitempty"`
}

// RefreshTask asks the refresh worker to re-fetch the catalog for a company
// after a mutating action completed. It replaces the original full page
// reload: the flow state machines are never touched by a refresh.
type RefreshTask struct {
	CompanyID  string `json:"company_id"`
	ServiceID  int64  `json:"service_id,omitempty"`
	EmployeeID int64  `json:"employee_id,omitempty"`
	RetryCount int    `json:"retry_count,omitempty"`
}
