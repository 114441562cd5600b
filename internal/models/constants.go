package models

// Booking wizard steps, in forward order. StepConfirmed is terminal.
const (
	StepServiceSelection  = "service_selection"
	StepDateTimeSelection = "datetime_selection"
	StepCustomerDetails   = "customer_details"
	StepConfirmed         = "confirmed"
)

// Cancellation flow steps.
const (
	StepLookup           = "lookup"
	StepReviewAndConfirm = "review_and_confirm"
)

// Reservation statuses as reported by the scheduling backend.
const (
	StatusPending   = "pendiente"
	StatusConfirmed = "confirmada"
	StatusCancelled = "cancelada"
)

// AnyEmployeeLabel is shown when the customer did not pin an employee and the
// backend response carries no resolved name.
const AnyEmployeeLabel = "Cualquier empleado"

const (
	// DefaultSessionTTL is how long flow state lives in Redis, in seconds.
	DefaultSessionTTL = 24 * 60 * 60

	// DefaultCatalogCacheTTL is the catalog cache lifetime, in seconds.
	DefaultCatalogCacheTTL = 30 * 60

	// RefreshQueueSize bounds the refresh worker's in-memory queue.
	RefreshQueueSize = 128

	// RateLimitActions is the number of session actions allowed per window.
	RateLimitActions = 30

	// RateLimitWindow is the rate limit window, in seconds.
	RateLimitWindow = 60
)

// Service durations accepted from the backend catalog: 30..360 in 30 minute steps.
const (
	MinServiceDuration  = 30
	MaxServiceDuration  = 360
	ServiceDurationStep = 30
)

// ValidDuration reports whether a service duration belongs to the accepted set.
func ValidDuration(minutes int) bool {
	if minutes < MinServiceDuration || minutes > MaxServiceDuration {
		return false
	}
	return minutes%ServiceDurationStep == 0
}
