package service

import (
	"context"
	"fmt"
	"sync"

	"citasya/internal/availability"
	"citasya/internal/backend"
	"citasya/internal/domain"
	"citasya/internal/events"
	"citasya/internal/metrics"
	"citasya/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CustomerDetails carries the contact fields collected at the last step.
type CustomerDetails struct {
	Name   string `json:"clienteNombre"`
	Cedula string `json:"cedula"`
	Email  string `json:"correo"`
	Phone  string `json:"telefono"`
}

// Wizard drives the booking flow state machine. All mutating actions load the
// session, validate the action against the current step, persist the new state
// and, where the availability filter changed, trigger a background fetch.
type Wizard struct {
	store     domain.SessionStore
	backend   domain.SchedulingBackend
	catalog   domain.CatalogProvider
	refresher domain.AvailabilityRefresher
	locks     *SessionLocks
	bus       domain.EventPublisher
	logger    *zerolog.Logger

	// inFlight holds session ids with a submission in progress. A second
	// submit for the same session fails fast instead of racing the first.
	inFlight sync.Map
}

func NewWizard(
	store domain.SessionStore,
	schedBackend domain.SchedulingBackend,
	catalog domain.CatalogProvider,
	refresher domain.AvailabilityRefresher,
	locks *SessionLocks,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *Wizard {
	return &Wizard{
		store:     store,
		backend:   schedBackend,
		catalog:   catalog,
		refresher: refresher,
		locks:     locks,
		bus:       bus,
		logger:    logger,
	}
}

// StartSession creates a fresh wizard session for a company.
func (w *Wizard) StartSession(ctx context.Context, companyID string) (*models.WizardState, error) {
	state := models.NewWizardState(uuid.NewString(), companyID)
	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if w.logger != nil {
		w.logger.Info().Str("session_id", state.SessionID).Str("empresa", companyID).Msg("wizard session started")
	}
	return state, nil
}

// Get returns the current session state.
func (w *Wizard) Get(ctx context.Context, sessionID string) (*models.WizardState, error) {
	return w.load(ctx, sessionID)
}

// SelectService records the chosen service. Allowed at any non-terminal step;
// dependent fields (employee, date, time) are cleared and a fresh availability
// fetch starts for the new filter.
func (w *Wizard) SelectService(ctx context.Context, sessionID string, serviceID int64) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := w.catalog.ServiceByID(ctx, state.CompanyID, serviceID); err != nil {
		return nil, err
	}

	state.Draft.SetService(serviceID)
	if state.Step == models.StepCustomerDetails {
		// The slot this step depended on is gone.
		state.Step = models.StepDateTimeSelection
	}
	w.bumpAvailability(state)

	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	w.refresher.Trigger(ctx, state)
	return state, nil
}

// SelectEmployee records the employee filter. employeeID 0 means "any
// employee". Date and time are cleared and availability refetched.
func (w *Wizard) SelectEmployee(ctx context.Context, sessionID string, employeeID int64) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Draft.ServiceID == 0 {
		return nil, ErrServiceRequired
	}

	if employeeID != 0 {
		emp, err := w.catalog.EmployeeByID(ctx, state.CompanyID, employeeID)
		if err != nil {
			return nil, err
		}
		if !emp.CanPerform(state.Draft.ServiceID) {
			return nil, ErrUnknownEmployee
		}
	}

	state.Draft.SetEmployee(employeeID)
	if state.Step == models.StepCustomerDetails {
		state.Step = models.StepDateTimeSelection
	}
	w.bumpAvailability(state)

	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	w.refresher.Trigger(ctx, state)
	return state, nil
}

// SelectDate records the chosen date. The date must be selectable in the
// session's current feed under its employee filter; the chosen time is
// cleared.
func (w *Wizard) SelectDate(ctx context.Context, sessionID, date string) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Draft.ServiceID == 0 {
		return nil, ErrServiceRequired
	}

	idx := availability.NewIndex(state.Feed, w.logger)
	if len(availability.TimesForDate(idx, date, state.Draft.EmployeeID)) == 0 {
		return nil, ErrSlotUnavailable
	}

	state.Draft.SetDate(date)
	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SelectTime records the chosen time of day. The exact (date, time) pairing
// must still exist in the feed under the employee filter.
func (w *Wizard) SelectTime(ctx context.Context, sessionID, timeOfDay string) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Draft.Date == "" {
		return nil, ErrSlotRequired
	}

	idx := availability.NewIndex(state.Feed, w.logger)
	if !availability.HasSlot(idx, state.Draft.Date, timeOfDay, state.Draft.EmployeeID) {
		return nil, ErrSlotUnavailable
	}

	state.Draft.SetTime(timeOfDay)
	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetCustomerDetails stores the contact fields. Only allowed once the wizard
// reached the customer details step.
func (w *Wizard) SetCustomerDetails(ctx context.Context, sessionID string, details CustomerDetails) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepCustomerDetails {
		return nil, ErrInvalidTransition
	}

	state.Draft.CustomerName = details.Name
	state.Draft.Cedula = details.Cedula
	state.Draft.Email = details.Email
	state.Draft.Phone = details.Phone
	if !state.Draft.HasCustomerDetails() {
		return nil, ErrDetailsRequired
	}

	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Next advances the wizard one step, enforcing the step's exit condition.
func (w *Wizard) Next(ctx context.Context, sessionID string) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch state.Step {
	case models.StepServiceSelection:
		if state.Draft.ServiceID == 0 {
			return nil, ErrServiceRequired
		}
		state.Step = models.StepDateTimeSelection
	case models.StepDateTimeSelection:
		if !state.Draft.HasSlot() {
			return nil, ErrSlotRequired
		}
		state.Step = models.StepCustomerDetails
	default:
		// Leaving customer details happens through Submit, not Next.
		return nil, ErrInvalidTransition
	}

	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Back moves the wizard one step backwards. Draft fields are kept: going back
// does not forget choices, only re-opens them.
func (w *Wizard) Back(ctx context.Context, sessionID string) (*models.WizardState, error) {
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch state.Step {
	case models.StepDateTimeSelection:
		state.Step = models.StepServiceSelection
	case models.StepCustomerDetails:
		state.Step = models.StepDateTimeSelection
	default:
		return nil, ErrInvalidTransition
	}

	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Submit sends the completed draft to the backend. At most one reservation
// request per session is in flight at a time; a concurrent second submit
// fails with ErrSubmitInFlight and no request is made.
func (w *Wizard) Submit(ctx context.Context, sessionID string) (*models.WizardState, error) {
	if _, loaded := w.inFlight.LoadOrStore(sessionID, struct{}{}); loaded {
		return nil, ErrSubmitInFlight
	}
	defer w.inFlight.Delete(sessionID)
	defer w.locks.Lock(sessionID).Unlock()

	state, err := w.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepCustomerDetails || !state.Draft.Complete() {
		return nil, ErrIncompleteDraft
	}

	reservation, err := w.backend.Reserve(ctx, state.CompanyID, state.Draft)
	if err != nil {
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.ClientRejection() {
			metrics.IncReservation("rejected")
		} else {
			metrics.IncReservation("error")
		}
		return nil, err
	}

	state.Step = models.StepConfirmed
	state.Summary = w.buildSummary(ctx, state, reservation)

	if err := w.store.SetWizard(ctx, state); err != nil {
		return nil, err
	}

	metrics.IncReservation("ok")
	if w.bus != nil {
		_ = w.bus.PublishJSON(events.EventReservationConfirmed, events.ReservationEventPayload{
			CompanyID:     state.CompanyID,
			ReservationID: reservation.ID,
			ServiceID:     state.Draft.ServiceID,
			EmployeeID:    state.Draft.EmployeeID,
			Date:          state.Draft.Date,
			Time:          state.Draft.Time,
		})
	}
	if w.logger != nil {
		w.logger.Info().
			Str("session_id", sessionID).
			Str("reservation_id", reservation.ID).
			Str("empresa", state.CompanyID).
			Msg("reservation confirmed")
	}
	return state, nil
}

func (w *Wizard) buildSummary(ctx context.Context, state *models.WizardState, reservation *models.Reservation) *models.ReservationSummary {
	summary := &models.ReservationSummary{
		ReservationID: reservation.ID,
		Date:          reservation.Date,
		Time:          reservation.Time,
		EmployeeName:  reservation.EmployeeName,
	}

	if svc, err := w.catalog.ServiceByID(ctx, state.CompanyID, state.Draft.ServiceID); err == nil {
		summary.ServiceName = svc.Name
	}

	// A pinned employee keeps their catalog name even when the reserve
	// response omits it; only an unpinned booking shows the generic label.
	if summary.EmployeeName == "" && state.Draft.EmployeeID != 0 {
		if emp, err := w.catalog.EmployeeByID(ctx, state.CompanyID, state.Draft.EmployeeID); err == nil {
			summary.EmployeeName = emp.Name
		}
	}
	if summary.EmployeeName == "" {
		summary.EmployeeName = models.AnyEmployeeLabel
	}
	return summary
}

// bumpAvailability invalidates the current feed and advances the sequence so
// any fetch still in flight for the old filter is discarded on arrival.
func (w *Wizard) bumpAvailability(state *models.WizardState) {
	state.AvailabilitySeq++
	state.Feed = nil
	state.FetchFailed = false
}

func (w *Wizard) load(ctx context.Context, sessionID string) (*models.WizardState, error) {
	state, err := w.store.GetWizard(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

func (w *Wizard) loadActive(ctx context.Context, sessionID string) (*models.WizardState, error) {
	state, err := w.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Confirmed() {
		return nil, ErrSessionCompleted
	}
	return state, nil
}
