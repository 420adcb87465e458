// Package metrics records discovery pipeline metrics with the Prometheus
// client library.
package metrics

import "time"

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks github.com/anstrom/rtspscout/internal/metrics Recorder

// Recorder is the set of measurements the pipeline, the worker pool and the
// watch API report. It allows metrics to be mocked in tests.
type Recorder interface {
	// RecordRun records the outcome and duration of one discovery run.
	RecordRun(status string, duration time.Duration)

	// RecordStage records how long a pipeline stage took.
	RecordStage(stage string, duration time.Duration)

	// AddHostsDiscovered counts hosts seen by a discovery method.
	AddHostsDiscovered(method string, count int)

	// AddOpenPorts counts open candidate ports.
	AddOpenPorts(count int)

	// AddRTSPEndpoints counts endpoints that answered OPTIONS.
	AddRTSPEndpoints(count int)

	// RecordService counts a classified service by kind.
	RecordService(kind string)

	// RecordDescribe counts a DESCRIBE classification outcome.
	RecordDescribe(status string)

	// RecordJob records a worker job outcome and duration.
	RecordJob(jobType, status string, duration time.Duration)

	// RecordHTTPRequest records an API request.
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRun(string, time.Duration)                      {}
func (Nop) RecordStage(string, time.Duration)                    {}
func (Nop) AddHostsDiscovered(string, int)                       {}
func (Nop) AddOpenPorts(int)                                     {}
func (Nop) AddRTSPEndpoints(int)                                 {}
func (Nop) RecordService(string)                                 {}
func (Nop) RecordDescribe(string)                                {}
func (Nop) RecordJob(string, string, time.Duration)              {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

var (
	_ Recorder = Nop{}
	_ Recorder = (*PrometheusMetrics)(nil)
)
