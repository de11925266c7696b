package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	r := New()
	r.DroneCount.Set(3)
	r.WaypointsReached.WithLabelValues("R1", "A").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "convoy_drone_count 3")
	assert.Contains(t, body, "convoy_waypoints_reached_total")
}
