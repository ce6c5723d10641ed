package provider_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// mockRunner serves canned responses keyed by "dir:args". Safe for use
// from concurrent worker goroutines.
type mockRunner struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	calls     []string
}

type mockResponse struct {
	output string
	err    error
}

func newMockRunner() *mockRunner {
	return &mockRunner{responses: make(map[string]mockResponse)}
}

func (m *mockRunner) respond(key, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = mockResponse{output: output}
}

// fail registers a failing call. The message is returned through the
// output string as well, matching a CombinedOutput runner where stderr
// text arrives in the output and the error is just the exit status.
func (m *mockRunner) fail(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = mockResponse{output: err.Error(), err: err}
}

func (m *mockRunner) callCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (m *mockRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	key := dir + ":" + strings.Join(args, " ")
	m.mu.Lock()
	m.calls = append(m.calls, key)
	resp, ok := m.responses[key]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unexpected call: %s", key)
	}
	return resp.output, resp.err
}
