package mutation

import (
	"errors"
	"time"
)

// Metrics provides observability for plan validation and execution.
//
// This is optional - if not provided, metrics collection is skipped.
type Metrics interface {
	// ObservePlan records a validated or executed plan with its outcome
	// ("ok", "invalid", "illegal", "exhausted", "partial", "error")
	ObservePlan(op Op, outcome string, duration time.Duration)

	// RecordCollision records a destination that needed a suffix
	RecordCollision()

	// RecordKeys records keys processed at a stage ("copied", "deleted",
	// "failed")
	RecordKeys(op Op, stage string, n int)
}

// noopMetrics is a default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObservePlan(op Op, outcome string, duration time.Duration) {}
func (noopMetrics) RecordCollision()                                          {}
func (noopMetrics) RecordKeys(op Op, stage string, n int)                     {}

// outcomeOf classifies err for ObservePlan.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var me *Error
	if !errors.As(err, &me) {
		return "error"
	}
	switch me.Kind {
	case KindInvalidRequest:
		return "invalid"
	case KindIllegalMove:
		return "illegal"
	case KindCollisionExhausted:
		return "exhausted"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "error"
	}
}
