package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_EventsAndRebuilds(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.EventHandled("item_added")
	m.EventHandled("item_added")
	m.EventHandled("left")
	m.ViewRebuilt("items")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("item_added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("left")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuildsTotal.WithLabelValues("items")))
}

func TestMetrics_CountsOverwrite(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.Counts(10, 3)
	m.Counts(4, 2)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.items))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.stacks))
}

func TestMetrics_OperationFinished(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.OperationFinished("pickup", "completed")
	m.OperationFinished("pickup", "canceled")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("pickup", "canceled")))
}

func TestMetrics_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.EventHandled("entered")
	m.ViewRebuilt("stacks")
	m.OperationFinished("eject", "completed")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "roomfurni_room_events_total")
	assert.Contains(t, names, "roomfurni_view_rebuilds_total")
	assert.Contains(t, names, "roomfurni_items")
	assert.Contains(t, names, "roomfurni_stacks")
	assert.Contains(t, names, "roomfurni_operations_total")
}

func TestNewMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
