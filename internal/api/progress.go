package api

import (
	"encoding/json"
	"math"
)

var (
	progressKeys         = []string{"progress", "percent", "pct"}
	progressKeysWithStep = []string{"progress", "percent", "pct", "step_progress"}
)

// Progress is an extracted completion percentage.
type Progress struct {
	Percent float64
	Known   bool
}

// PickProgress searches a job result for a numeric progress field. Values at or
// below 1 are fractions and get scaled to a percentage; everything is clamped
// to [0,100]. withStep adds step_progress as a last candidate, used by the
// job list view.
func PickProgress(result json.RawMessage, withStep bool) Progress {
	if len(result) == 0 {
		return Progress{}
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(result, &payload); err != nil {
		return Progress{}
	}
	keys := progressKeys
	if withStep {
		keys = progressKeysWithStep
	}
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		// null decodes into a nil pointer rather than failing.
		var number *float64
		if err := json.Unmarshal(raw, &number); err != nil || number == nil {
			continue
		}
		value := *number
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		if value <= 1 {
			value = clamp(value, 0, 1) * 100
		}
		return Progress{Percent: clamp(value, 0, 100), Known: true}
	}
	return Progress{}
}

// Whole is the percentage rounded for display; tiny fractions render as 0.
func (p Progress) Whole() int {
	return int(math.Round(p.Percent))
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// ResultField returns a string field from a job result, if present.
func ResultField(result json.RawMessage, key string) string {
	if len(result) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(result, &payload); err != nil {
		return ""
	}
	value, _ := payload[key].(string)
	return value
}
