package metrics

import "time"

// Package-level helpers for the singleton; dot-import friendly.

// MetricSuccess records a successful operation.
func MetricSuccess(topic, operation string) {
	GetInstance().RecordSuccess(topic, operation)
}

// MetricFail records a failed operation.
func MetricFail(topic, operation string) {
	GetInstance().RecordFailure(topic, operation, "")
}

// MetricFailWithReason records a failed operation with a reason bucket.
func MetricFailWithReason(topic, operation, reason string) {
	GetInstance().RecordFailure(topic, operation, reason)
}

// MetricInc increments a counter.
func MetricInc(topic, function string) {
	GetInstance().IncrementCounter(topic, function)
}

// MetricDuration records a timing sample.
func MetricDuration(topic, function string, duration time.Duration) {
	GetInstance().RecordDuration(topic, function, duration)
}
