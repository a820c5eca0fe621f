package generator

import (
	"context"
	"sync"
)

// MockCall records one Generate invocation for inspection.
type MockCall struct {
	Content string
	Kind    Kind
}

// MockClient is a test double for the generator gateway. Responses are
// returned per kind; Errs (if set) are consumed first, one per call, which
// lets tests script fail-then-succeed sequences.
type MockClient struct {
	mu        sync.Mutex
	Responses map[Kind]string
	Errs      []error
	Calls     []MockCall
}

// NewMockClient creates a MockClient with the given per-kind responses.
func NewMockClient(responses map[Kind]string) *MockClient {
	return &MockClient{Responses: responses}
}

func (m *MockClient) Generate(_ context.Context, content string, kind Kind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Content: content, Kind: kind})

	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return "", err
		}
	}
	return m.Responses[kind], nil
}

// CallCount returns the number of Generate calls for a kind.
func (m *MockClient) CallCount(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}
