package util

import (
	"anoud-backend/internal/shared/metrics"
	"anoud-backend/internal/shared/telemetry"
)

// BestEffort runs a side effect whose failure must never reach the caller.
// Errors and panics are logged under name and swallowed.
func BestEffort(name string, fields map[string]any, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncBestEffortFailure()
			telemetry.Error(name+".panic", withErr(fields, rec))
		}
	}()
	if err := fn(); err != nil {
		metrics.IncBestEffortFailure()
		telemetry.Warn(name+".failed", withErr(fields, err.Error()))
	}
}

func withErr(fields map[string]any, err any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err
	return out
}
