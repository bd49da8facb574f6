package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewBookingMetrics_RegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveAdmission("success")
	m.ObserveAdmission("DUPLICATE_BOOKING")
	m.ObserveReplay()
	m.ObserveSlotCompute(0.002)
	m.ObserveNotification("email", "sent")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveAdmission("success")
	m.ObserveReplay()
	m.ObserveSlotCompute(0.1)
	m.ObserveNotification("sms", "capped")
}
