package providers

import (
	"context"
	"sync"

	"github.com/discord-kg/pipeline/internal/llm"
	"github.com/discord-kg/pipeline/internal/types"
)

// MockCall records one call made against the mock provider.
type MockCall struct {
	SystemPrompt string
	UserPrompt   string
}

// MockProvider implements llm.Provider for tests. Responses are scripted:
// each call consumes the next one, cycling when exhausted. Errors can be
// injected per call index to exercise retry paths.
type MockProvider struct {
	mu            sync.Mutex
	model         string
	responses     []string
	responseIndex int
	calls         []MockCall
	failAt        map[int]error
	callCount     int
}

// NewMockProvider creates a mock provider that replays the given responses
// in order.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{
		model:     "mock-model",
		responses: responses,
		failAt:    make(map[int]error),
	}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return llm.ProviderMock.String()
}

// Model returns the mock model identifier.
func (p *MockProvider) Model() string {
	return p.model
}

// FailAt injects an error for the nth call (0-based). The call still counts
// toward the script index.
func (p *MockProvider) FailAt(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAt[n] = err
}

// Complete replays the next scripted response. Token counts are synthesized
// from text lengths so cost arithmetic downstream still exercises real
// numbers.
func (p *MockProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	n := p.callCount
	p.callCount++

	if err, ok := p.failAt[n]; ok {
		return nil, err
	}

	if len(p.responses) == 0 {
		return nil, types.NewRetryableError(types.LLM_CALL_FAILED, "mock provider has no responses configured")
	}

	content := p.responses[p.responseIndex%len(p.responses)]
	p.responseIndex++

	inputTokens := len(systemPrompt+userPrompt) / 4
	outputTokens := len(content) / 4
	return &llm.Response{
		Content:      content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Model:        p.model,
		Provider:     p.Name(),
	}, nil
}

// Calls returns a copy of all recorded calls.
func (p *MockProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := make([]MockCall, len(p.calls))
	copy(calls, p.calls)
	return calls
}

// Reset clears recorded calls and rewinds the response script.
func (p *MockProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.callCount = 0
	p.responseIndex = 0
	p.failAt = make(map[int]error)
}
