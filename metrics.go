package authgate

import "sync/atomic"

// MetricID defines a public type used by authgate APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricTokenIssued is an exported constant or variable used by the authentication service.
	MetricTokenIssued MetricID = iota
	// MetricTokenVerified is an exported constant or variable used by the authentication service.
	MetricTokenVerified
	// MetricTokenRejected is an exported constant or variable used by the authentication service.
	MetricTokenRejected
	// MetricCodeSent is an exported constant or variable used by the authentication service.
	MetricCodeSent
	// MetricCodeResendBlocked is an exported constant or variable used by the authentication service.
	MetricCodeResendBlocked
	// MetricCodeVerified is an exported constant or variable used by the authentication service.
	MetricCodeVerified
	// MetricCodeRejected is an exported constant or variable used by the authentication service.
	MetricCodeRejected
	// MetricRPCCall is an exported constant or variable used by the authentication service.
	MetricRPCCall
	// MetricRPCTimeout is an exported constant or variable used by the authentication service.
	MetricRPCTimeout
	// MetricNotificationDropped is an exported constant or variable used by the authentication service.
	MetricNotificationDropped

	metricCount
)

// Metrics holds hot-path counters for the service. Counters are plain
// atomics; Snapshot is the only aggregation point.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot defines a public type used by authgate APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricCount),
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
