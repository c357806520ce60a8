package llm

import "math"

// Tracker accumulates request, token, and cost totals across completion
// calls. The workflow runs its nodes sequentially, so Tracker does no
// locking; wrap it if calls ever become concurrent.
type Tracker struct {
	requests    int
	totalTokens int
	totalCost   float64
	provider    string
	model       string
}

// NewTracker creates a tracker labeled with the provider and model it
// observes.
func NewTracker(provider, model string) *Tracker {
	return &Tracker{provider: provider, model: model}
}

// Record adds one completion response to the running totals. Failed
// responses still count as requests.
func (t *Tracker) Record(resp *Response) {
	if resp == nil {
		return
	}
	t.requests++
	t.totalTokens += resp.TotalTokens
	t.totalCost += resp.Cost
}

// Requests returns the number of calls recorded so far.
func (t *Tracker) Requests() int { return t.requests }

// TotalTokens returns the token total across all recorded calls.
func (t *Tracker) TotalTokens() int { return t.totalTokens }

// TotalCost returns the accumulated cost in USD.
func (t *Tracker) TotalCost() float64 { return t.totalCost }

// CostSummary is the serializable usage report for one provider.
type CostSummary struct {
	TotalRequests     int     `json:"total_requests"`
	TotalTokens       int     `json:"total_tokens"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
}

// Summary produces the usage report. Costs are rounded to 4 decimal places.
func (t *Tracker) Summary() CostSummary {
	requests := t.requests
	if requests == 0 {
		requests = 1
	}
	return CostSummary{
		TotalRequests:     t.requests,
		TotalTokens:       t.totalTokens,
		TotalCostUSD:      Round4(t.totalCost),
		AvgCostPerRequest: Round4(t.totalCost / float64(requests)),
		Provider:          t.provider,
		Model:             t.model,
	}
}

// Round4 rounds a dollar amount to 4 decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round6 rounds a dollar amount to 6 decimal places, used for per-message
// unit costs that would vanish at 4 places.
func Round6(v float64) float64 {
	return math.Round(v*1000000) / 1000000
}
