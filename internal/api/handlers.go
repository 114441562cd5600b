package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"citasya/internal/availability"
	"citasya/internal/backend"
	"citasya/internal/metrics"
	"citasya/internal/models"
	"citasya/internal/service"
)

// genericRejectionMessage replaces a backend rejection that carried no
// {error} body, so the client never sees an empty message.
const genericRejectionMessage = "the request could not be completed"

// sessionResponse is the wizard state rendered for the client, with the
// selectable dates and times already resolved for the current filter.
type sessionResponse struct {
	SessionID   string                     `json:"sessionId"`
	CompanyID   string                     `json:"empresa"`
	Step        string                     `json:"paso"`
	Draft       models.BookingDraft        `json:"borrador"`
	Dates       []string                   `json:"fechas,omitempty"`
	Times       []models.NormalizedSlot    `json:"horarios,omitempty"`
	FetchFailed bool                       `json:"errorDisponibilidad,omitempty"`
	Summary     *models.ReservationSummary `json:"resumen,omitempty"`
}

func (s *HTTPServer) sessionView(state *models.WizardState) sessionResponse {
	resp := sessionResponse{
		SessionID:   state.SessionID,
		CompanyID:   state.CompanyID,
		Step:        state.Step,
		Draft:       state.Draft,
		FetchFailed: state.FetchFailed,
		Summary:     state.Summary,
	}

	if len(state.Feed) > 0 {
		idx := availability.NewIndex(state.Feed, s.logger)
		resp.Dates = availability.AvailableDates(idx, state.Draft.EmployeeID)
		if state.Draft.Date != "" {
			resp.Times = availability.TimesForDate(idx, state.Draft.Date, state.Draft.EmployeeID)
		}
	}
	return resp
}

func (s *HTTPServer) handleStartSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("start_session")

	state, err := s.wizard.StartSession(r.Context(), r.PathValue("empresa"))
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionView(state))
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_session")

	state, err := s.wizard.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(state))
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("services")

	services, err := s.catalog.Services(r.Context(), r.PathValue("empresa"))
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"servicios": services})
}

func (s *HTTPServer) handleEmployees(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("employees")

	var serviceID int64
	if raw := r.URL.Query().Get("servicioId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid servicioId")
			return
		}
		serviceID = parsed
	}

	employees, err := s.catalog.Employees(r.Context(), r.PathValue("empresa"), serviceID)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"empleados": employees})
}

// sessionAction runs a mutating wizard action behind the per-session rate
// limit and renders the resulting state.
func (s *HTTPServer) sessionAction(w http.ResponseWriter, r *http.Request, endpoint string, fn func(ctx context.Context, sessionID string) (*models.WizardState, error)) {
	metrics.IncHTTP(endpoint)
	sessionID := r.PathValue("id")

	if !s.allowSessionAction(r, sessionID) {
		writeError(w, http.StatusTooManyRequests, service.ErrRateLimited.Error())
		return
	}

	state, err := fn(r.Context(), sessionID)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView(state))
}

func (s *HTTPServer) allowSessionAction(r *http.Request, sessionID string) bool {
	allowed, err := s.store.CheckRateLimit(r.Context(), "session:"+sessionID, s.engineCfg.RateLimitActions, s.engineCfg.RateLimitWindow())
	if err != nil {
		// The limiter is best-effort; a store failure never blocks the flow.
		if s.logger != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("rate limit check failed")
		}
		return true
	}
	return allowed
}

func (s *HTTPServer) handleSelectService(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceID int64 `json:"servicioId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.sessionAction(w, r, "select_service", func(ctx context.Context, sessionID string) (*models.WizardState, error) {
		return s.wizard.SelectService(ctx, sessionID, body.ServiceID)
	})
}

func (s *HTTPServer) handleSelectEmployee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EmployeeID int64 `json:"empleadoId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.sessionAction(w, r, "select_employee", func(ctx context.Context, sessionID string) (*models.WizardState, error) {
		return s.wizard.SelectEmployee(ctx, sessionID, body.EmployeeID)
	})
}

func (s *HTTPServer) handleSelectDate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"fecha"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.sessionAction(w, r, "select_date", func(ctx context.Context, sessionID string) (*models.WizardState, error) {
		return s.wizard.SelectDate(ctx, sessionID, body.Date)
	})
}

func (s *HTTPServer) handleSelectTime(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Time string `json:"hora"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.sessionAction(w, r, "select_time", func(ctx context.Context, sessionID string) (*models.WizardState, error) {
		return s.wizard.SelectTime(ctx, sessionID, body.Time)
	})
}

func (s *HTTPServer) handleCustomerDetails(w http.ResponseWriter, r *http.Request) {
	var body service.CustomerDetails
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.sessionAction(w, r, "customer_details", func(ctx context.Context, sessionID string) (*models.WizardState, error) {
		return s.wizard.SetCustomerDetails(ctx, sessionID, body)
	})
}

func (s *HTTPServer) handleNext(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, "next", s.wizard.Next)
}

func (s *HTTPServer) handleBack(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, "back", s.wizard.Back)
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, "submit", s.wizard.Submit)
}

func (s *HTTPServer) handleCancelLookup(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_lookup")

	var body models.CancellationRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reservation, err := s.cancel.Lookup(r.Context(), r.PathValue("empresa"), body.ReservationID, body.Cedula)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cita": reservation})
}

func (s *HTTPServer) handleCancelConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_confirm")

	var body struct {
		Cedula string `json:"cedula"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.cancel.Confirm(r.Context(), r.PathValue("empresa"), r.PathValue("idCita"), body.Cedula); err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"estado": models.StatusCancelled})
}

func (s *HTTPServer) handleCancelBack(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_back")

	if err := s.cancel.Back(r.Context(), r.PathValue("empresa"), r.PathValue("idCita")); err != nil {
		s.writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFlowError maps flow errors onto HTTP statuses. Backend rejections pass
// their message through; anything unexpected becomes an opaque 500.
func (s *HTTPServer) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrReservationLookup),
		errors.Is(err, service.ErrNoPendingCancellation):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionCompleted),
		errors.Is(err, service.ErrSubmitInFlight),
		errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrServiceRequired),
		errors.Is(err, service.ErrSlotRequired),
		errors.Is(err, service.ErrDetailsRequired),
		errors.Is(err, service.ErrIncompleteDraft),
		errors.Is(err, service.ErrUnknownService),
		errors.Is(err, service.ErrUnknownEmployee):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.ClientRejection() {
			// Surface the server's message verbatim when it sent one.
			message := apiErr.Message
			if message == "" {
				message = genericRejectionMessage
			}
			writeError(w, apiErr.StatusCode, message)
			return
		}
		if s.logger != nil {
			s.logger.Error().Err(err).Msg("unhandled flow error")
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
