package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfkit/internal/appd"
)

func TestSamples(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := Samples(now)
	require.Len(t, got, 6)

	want := map[string]struct {
		id     int64
		errPct float64
		health appd.HealthStatus
	}{
		"User-Service":     {1001, 1.77, appd.Warning},
		"Product-Service":  {1002, 2.66, appd.Warning},
		"Cart-Service":     {1003, 0.87, appd.Healthy},
		"Order-Service":    {1004, 2.11, appd.Warning},
		"API-Gateway":      {1005, 5.23, appd.Critical},
		"Frontend-Service": {1006, 1.57, appd.Warning},
	}
	for _, s := range got {
		w, ok := want[s.ApplicationName]
		require.True(t, ok, s.ApplicationName)
		assert.Equal(t, w.id, s.ApplicationID, s.ApplicationName)
		assert.Equal(t, w.errPct, s.ErrorPercentage, s.ApplicationName)
		assert.Equal(t, w.health, s.HealthStatus, s.ApplicationName)
		assert.Equal(t, now, s.Timestamp)
	}
}

func TestSamples_Summary(t *testing.T) {
	s := appd.Summarize(Samples(time.Now()))
	assert.Equal(t, 6, s.TotalApplications)
	assert.Equal(t, 1, s.ByStatus[appd.Healthy])
	assert.Equal(t, 4, s.ByStatus[appd.Warning])
	assert.Equal(t, 1, s.ByStatus[appd.Critical])
	assert.InDelta(t, 428.5, s.TotalCallsPerMinute, 1e-9)
}
