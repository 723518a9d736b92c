package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solvanity/pkg/search"
)

func gather(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			out[mf.GetName()] = sampleValue(mf.GetType(), metric)
		}
	}
	return out
}

func TestObserveAdvancesByDelta(t *testing.T) {
	m := New()

	m.Observe(search.Snapshot{TotalGenerated: 1000, MatchesFound: 1, DevicesActive: 2, Elapsed: time.Second})
	m.Observe(search.Snapshot{TotalGenerated: 2500, MatchesFound: 1, DevicesActive: 1, Elapsed: 2 * time.Second})

	got := gather(t, m)
	assert.Equal(t, float64(2500), got["solvanity_keys_generated_total"])
	assert.Equal(t, float64(1), got["solvanity_matches_found_total"])
	assert.Equal(t, float64(1), got["solvanity_devices_active"])
}

func TestObserveIgnoresStaleSnapshot(t *testing.T) {
	m := New()

	m.Observe(search.Snapshot{TotalGenerated: 500})
	m.Observe(search.Snapshot{TotalGenerated: 500})

	got := gather(t, m)
	assert.Equal(t, float64(500), got["solvanity_keys_generated_total"])
}

func TestLogDoesNotPanic(t *testing.T) {
	m := New()
	m.Observe(search.Snapshot{TotalGenerated: 10})
	m.Log(zap.NewNop())
}
