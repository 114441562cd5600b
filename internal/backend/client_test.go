package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"citasya/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := zerolog.Nop()
	return NewClient(srv.URL, 2*time.Second, &logger)
}

func TestClientServices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/empresa/barberia-x/servicios", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":5,"nombre":"Corte","duracion":30,"precio":12.5}]`))
	})

	services, err := client.Services(context.Background(), "barberia-x")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, models.Service{ID: 5, Name: "Corte", DurationMinutes: 30, Price: 12.5}, services[0])
}

func TestClientEmployees(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/empresa/barberia-x/empleados", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":2,"nombre":"Ana","servicios":[{"servicioId":5},{"servicioId":7}]}]`))
	})

	employees, err := client.Employees(context.Background(), "barberia-x")
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, int64(2), employees[0].ID)
	assert.Equal(t, []int64{5, 7}, employees[0].ServiceIDs)
	assert.True(t, employees[0].CanPerform(5))
	assert.False(t, employees[0].CanPerform(9))
}

func TestClientAvailability(t *testing.T) {
	t.Run("WithoutEmployeeFilter", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5", r.URL.Query().Get("servicioId"))
			assert.False(t, r.URL.Query().Has("empleadoId"))
			_, _ = w.Write([]byte(`[{"fecha":"2025-06-10","horarios":[{"hora":"09:00","empleadoId":1}]}]`))
		})

		feed, err := client.Availability(context.Background(), "barberia-x", 5, 0)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, "2025-06-10", feed[0].Date)
		assert.Equal(t, models.FeedSlot{Time: "09:00", EmployeeID: 1}, feed[0].Slots[0])
	})

	t.Run("WithEmployeeFilter", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2", r.URL.Query().Get("empleadoId"))
			_, _ = w.Write([]byte(`[]`))
		})

		_, err := client.Availability(context.Background(), "barberia-x", 5, 2)
		require.NoError(t, err)
	})
}

func TestClientReserve(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/empresa/barberia-x/reservar", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(5), body["servicioId"])
			assert.NotContains(t, body, "empleadoId", "any-employee drafts omit the field")

			_, _ = w.Write([]byte(`{"id":341,"profesional":"Ana"}`))
		})

		draft := models.BookingDraft{
			ServiceID: 5, Date: "2025-06-10", Time: "09:00",
			CustomerName: "Luis", Cedula: "801", Email: "l@x.com", Phone: "555",
		}
		res, err := client.Reserve(context.Background(), "barberia-x", draft)
		require.NoError(t, err)
		assert.Equal(t, "341", res.ID)
		assert.Equal(t, "Ana", res.EmployeeName)
		assert.Equal(t, "2025-06-10", res.Date)
	})

	t.Run("ServerRejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"El horario ya no está disponible"}`))
		})

		_, err := client.Reserve(context.Background(), "barberia-x", models.BookingDraft{ServiceID: 5})
		require.Error(t, err)

		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
		assert.Equal(t, "El horario ya no está disponible", apiErr.Message)
		assert.True(t, apiErr.ClientRejection())
	})
}

func TestClientLookupReservation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/empresa/barberia-x/buscar", r.URL.Path)

		var body models.CancellationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CIT-12345", body.ReservationID)
		assert.Equal(t, "801", body.Cedula)

		_, _ = w.Write([]byte(`{
			"id":"CIT-12345",
			"servicio":{"nombre":"Corte"},
			"fecha":"2025-06-10","hora":"09:00",
			"profesional":"Ana","clienteNombre":"Luis",
			"cedula":"801","estado":"confirmada"
		}`))
	})

	res, err := client.LookupReservation(context.Background(), "barberia-x", "CIT-12345", "801")
	require.NoError(t, err)
	assert.Equal(t, "Corte", res.ServiceName)
	assert.Equal(t, "Ana", res.EmployeeName)
	assert.Equal(t, models.StatusConfirmed, res.Status)
}

func TestClientCancelReservation(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/empresa/barberia-x/CIT-12345/cancelar", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})

		err := client.CancelReservation(context.Background(), "barberia-x", "CIT-12345", "801")
		assert.NoError(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Cita no encontrada"}`))
		})

		err := client.CancelReservation(context.Background(), "barberia-x", "CIT-999", "801")
		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}
