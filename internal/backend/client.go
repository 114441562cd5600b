package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"citasya/internal/models"

	"github.com/rs/zerolog"
)

const defaultTimeout = 20 * time.Second

// Client talks to the scheduling backend that owns catalogs, availability
// computation and reservations. This engine only consumes its HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient builds a backend client. A non-positive timeout falls back to the
// default.
func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type employeeDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"nombre"`
	Services []struct {
		ServiceID int64 `json:"servicioId"`
	} `json:"servicios"`
}

type reservationDTO struct {
	ID      string `json:"id"`
	Service struct {
		Name string `json:"nombre"`
	} `json:"servicio"`
	Date         string `json:"fecha"`
	Time         string `json:"hora"`
	EmployeeName string `json:"profesional"`
	CustomerName string `json:"clienteNombre"`
	Cedula       string `json:"cedula"`
	Status       string `json:"estado"`
}

type reserveResponse struct {
	ID           json.Number `json:"id"`
	EmployeeName string      `json:"profesional"`
}

// Services fetches the service catalog for a company.
func (c *Client) Services(ctx context.Context, companyID string) ([]models.Service, error) {
	var out []models.Service
	if err := c.get(ctx, fmt.Sprintf("/empresa/%s/servicios", url.PathEscape(companyID)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Employees fetches the employee catalog for a company.
func (c *Client) Employees(ctx context.Context, companyID string) ([]models.Employee, error) {
	var dtos []employeeDTO
	if err := c.get(ctx, fmt.Sprintf("/empresa/%s/empleados", url.PathEscape(companyID)), &dtos); err != nil {
		return nil, err
	}

	employees := make([]models.Employee, 0, len(dtos))
	for _, dto := range dtos {
		e := models.Employee{ID: dto.ID, Name: dto.Name}
		for _, s := range dto.Services {
			e.ServiceIDs = append(e.ServiceIDs, s.ServiceID)
		}
		employees = append(employees, e)
	}
	return employees, nil
}

// Availability fetches the per-day availability feed for a (service, employee)
// filter. employeeID 0 omits the employee parameter.
func (c *Client) Availability(ctx context.Context, companyID string, serviceID, employeeID int64) ([]models.FeedDay, error) {
	path := fmt.Sprintf("/empresa/%s/fechas-horarios?servicioId=%d", url.PathEscape(companyID), serviceID)
	if employeeID != 0 {
		path += "&empleadoId=" + strconv.FormatInt(employeeID, 10)
	}

	var out []models.FeedDay
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reserve submits a completed draft. Exactly one request per call; the caller
// owns the double-submit guard.
func (c *Client) Reserve(ctx context.Context, companyID string, draft models.BookingDraft) (*models.Reservation, error) {
	var resp reserveResponse
	if err := c.post(ctx, fmt.Sprintf("/empresa/%s/reservar", url.PathEscape(companyID)), draft, &resp); err != nil {
		return nil, err
	}

	return &models.Reservation{
		ID:           resp.ID.String(),
		Date:         draft.Date,
		Time:         draft.Time,
		EmployeeName: resp.EmployeeName,
		CustomerName: draft.CustomerName,
		Cedula:       draft.Cedula,
		Status:       models.StatusConfirmed,
	}, nil
}

// LookupReservation verifies ownership and returns the read-only snapshot.
func (c *Client) LookupReservation(ctx context.Context, companyID, reservationID, cedula string) (*models.Reservation, error) {
	body := models.CancellationRequest{ReservationID: reservationID, Cedula: cedula}

	var dto reservationDTO
	if err := c.post(ctx, fmt.Sprintf("/empresa/%s/buscar", url.PathEscape(companyID)), body, &dto); err != nil {
		return nil, err
	}

	return &models.Reservation{
		ID:           dto.ID,
		ServiceName:  dto.Service.Name,
		Date:         dto.Date,
		Time:         dto.Time,
		EmployeeName: dto.EmployeeName,
		CustomerName: dto.CustomerName,
		Cedula:       dto.Cedula,
		Status:       dto.Status,
	}, nil
}

// CancelReservation issues the destructive cancel carrying the original
// credentials, never client-held snapshot data.
func (c *Client) CancelReservation(ctx context.Context, companyID, reservationID, cedula string) error {
	path := fmt.Sprintf("/empresa/%s/%s/cancelar", url.PathEscape(companyID), url.PathEscape(reservationID))
	return c.post(ctx, path, map[string]string{"cedula": cedula}, nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &envelope); err == nil {
			apiErr.Message = envelope.Error
		}
		if c.logger != nil {
			c.logger.Debug().Int("status", resp.StatusCode).Str("path", req.URL.Path).Str("message", apiErr.Message).Msg("backend rejection")
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("backend: unmarshal response: %w", err)
	}
	return nil
}
