package pricing

import "time"

// Usage summarizes one completed generation call: wall-clock duration from
// caller-supplied timestamps, token counts from the backend, and their cost.
type Usage struct {
	Model        string
	Duration     time.Duration
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
}

// Account computes the usage record for one call. Token and duration fields
// are always filled; when no rate is configured for the model the cost
// fields stay zero and the error reports the missing rate, so callers can
// treat pricing as optional.
func (t *Table) Account(model string, inputTokens, outputTokens int64, started, finished time.Time) (Usage, error) {
	usage := Usage{
		Model:        model,
		Duration:     finished.Sub(started),
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
	}

	inputCost, err := t.Cost(model, DirectionInput, inputTokens)
	if err != nil {
		return usage, err
	}
	outputCost, err := t.Cost(model, DirectionOutput, outputTokens)
	if err != nil {
		return usage, err
	}

	usage.InputCost = inputCost
	usage.OutputCost = outputCost
	usage.TotalCost = inputCost + outputCost
	return usage, nil
}
