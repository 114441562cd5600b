package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citasya",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citasya",
			Name:      "reservations_total",
			Help:      "Reservation submissions by result.",
		},
		[]string{"result"},
	)

	cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citasya",
			Name:      "cancellations_total",
			Help:      "Cancellation confirmations by result.",
		},
		[]string{"result"},
	)

	availabilityFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citasya",
			Name:      "availability_fetches_total",
			Help:      "Availability feed fetches by result.",
		},
		[]string{"result"},
	)

	staleDiscards = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "citasya",
			Name:      "stale_availability_discarded_total",
			Help:      "Availability results discarded because the filter changed in flight.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservations, cancellations, availabilityFetches, staleDiscards)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncReservation counts a reservation submission outcome.
func IncReservation(result string) {
	reservations.WithLabelValues(result).Inc()
}

// IncCancellation counts a cancellation outcome.
func IncCancellation(result string) {
	cancellations.WithLabelValues(result).Inc()
}

// IncAvailabilityFetch counts an availability fetch outcome.
func IncAvailabilityFetch(result string) {
	availabilityFetches.WithLabelValues(result).Inc()
}

// IncStaleDiscard counts a last-filter-wins discard.
func IncStaleDiscard() {
	staleDiscards.Inc()
}
