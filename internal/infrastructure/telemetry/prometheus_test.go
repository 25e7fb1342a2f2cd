package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuntimeRegistry(t *testing.T) {
	reg := NewRuntimeRegistry("agrodash-api", "1.2.3")

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]bool, len(families))
	for _, f := range families {
		byName[f.GetName()] = true
		if f.GetName() != "agrodash_service_info" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		m := f.GetMetric()[0]
		assert.Equal(t, 1.0, m.GetGauge().GetValue())
		labels := map[string]string{}
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		assert.Equal(t, map[string]string{"service": "agrodash-api", "version": "1.2.3"}, labels)
	}
	assert.True(t, byName["agrodash_service_info"])
	assert.True(t, byName["go_goroutines"])
}
