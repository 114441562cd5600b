package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(reservations.WithLabelValues("ok"))
	IncReservation("ok")
	assert.Equal(t, before+1, testutil.ToFloat64(reservations.WithLabelValues("ok")))

	beforeStale := testutil.ToFloat64(staleDiscards)
	IncStaleDiscard()
	assert.Equal(t, beforeStale+1, testutil.ToFloat64(staleDiscards))
}
