package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_Counters(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordRun("success", 3*time.Second)
	pm.RecordRun("failure", time.Second)
	pm.RecordRun("success", 2*time.Second)
	pm.AddHostsDiscovered("arp", 4)
	pm.AddHostsDiscovered("icmp", 2)
	pm.AddOpenPorts(3)
	pm.AddRTSPEndpoints(2)
	pm.RecordService("rtsp")
	pm.RecordService("rtsp")
	pm.RecordDescribe("not_found")
	pm.RecordJob("rtsp-confirm", "success", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.runsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.runsTotal.WithLabelValues("failure")))
	assert.Equal(t, 4.0, testutil.ToFloat64(pm.hostsDiscovered.WithLabelValues("arp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.hostsDiscovered.WithLabelValues("icmp")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.openPorts))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.rtspEndpoints))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.servicesTotal.WithLabelValues("rtsp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.describeResults.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.jobsTotal.WithLabelValues("rtsp-confirm", "success")))
}

func TestPrometheusMetrics_HTTPHandlerServes(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordStage("host-discovery", time.Second)
	pm.RecordHTTPRequest(http.MethodGet, "/api/v1/report", http.StatusOK, 5*time.Millisecond)

	rr := httptest.NewRecorder()
	pm.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, name := range []string{
		"rtspscout_discovery_stage_duration_seconds",
		"rtspscout_api_requests_total",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(body, name), "expected %s in exposition", name)
	}
}

func TestGetGlobalMetrics(t *testing.T) {
	assert.Same(t, GetGlobalMetrics(), GetGlobalMetrics())
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordRun("success", time.Second)
	r.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
