package internal

import (
	"context"
	"sync"

	"github.com/lychee-technology/kindgen"
)

// telemetry.go
// Hook layer for pipeline and record metrics. Callers register an emitter (the server wires
// a Prometheus one); by default every emission is dropped.

// TelemetryEmitter receives one measurement.
type TelemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

// Metric names emitted by this package.
const (
	MetricCompatibilityChecks = "kindgen_compatibility_checks_total"
	MetricGenerations         = "kindgen_generations_total"
	MetricRecordOperations    = "kindgen_record_operation_latency_ms"
)

var (
	teleMu   sync.Mutex
	teleImpl TelemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter installs fn process-wide; nil restores the no-op emitter.
func RegisterTelemetryEmitter(fn TelemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emitter() TelemetryEmitter {
	teleMu.Lock()
	defer teleMu.Unlock()
	return teleImpl
}

// EmitCompatibilityResult counts one subset check.
// labels: {"result": "accepted"|"rejected"}
func EmitCompatibilityResult(ctx context.Context, accepted bool) {
	labels := map[string]string{"result": outcome(accepted, "accepted", "rejected")}
	emitter()(ctx, MetricCompatibilityChecks, labels, int64(1))
}

// EmitGeneration counts one generated artifact.
// labels: {"artifact": "model"|"router", "result": "ok"|"failed"}
func EmitGeneration(ctx context.Context, artifact string, err error) {
	labels := map[string]string{
		"artifact": artifact,
		"result":   outcome(err == nil, "ok", "failed"),
	}
	emitter()(ctx, MetricGenerations, labels, int64(1))
}

// EmitRecordOperation records the latency (milliseconds) of one record operation.
// labels: {"operation": "<create|read|...>", "result": "ok"|"not_found"|"conflict"|"invalid"|"error"}
func EmitRecordOperation(ctx context.Context, operation string, ms int64, err error) {
	labels := map[string]string{
		"operation": operation,
		"result":    recordResult(err),
	}
	emitter()(ctx, MetricRecordOperations, labels, ms)
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func recordResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case kindgen.IsNotFound(err):
		return "not_found"
	case kindgen.IsAlreadyExists(err):
		return "conflict"
	case kindgen.IsValidationError(err):
		return "invalid"
	default:
		return "error"
	}
}
