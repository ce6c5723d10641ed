package gitx_test

import (
	"context"
	"fmt"
	"strings"
)

// MockRunner implements gitx.Runner for testing.
type MockRunner struct {
	// Responses maps "dir:args" keys to (output, error) pairs.
	Responses map[string]MockResponse
	// Calls records each key in invocation order.
	Calls []string
}

type MockResponse struct {
	Output string
	Err    error
}

func (m *MockRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	key := dir + ":" + strings.Join(args, " ")
	m.Calls = append(m.Calls, key)
	if resp, ok := m.Responses[key]; ok {
		return resp.Output, resp.Err
	}
	// Also try without dir for convenience
	keyNoDir := ":" + strings.Join(args, " ")
	if resp, ok := m.Responses[keyNoDir]; ok {
		return resp.Output, resp.Err
	}
	return "", fmt.Errorf("unexpected call: dir=%q args=%v", dir, args)
}

// recordingRunner succeeds on every call and records the argv of each,
// for asserting batching behavior over large file lists.
type recordingRunner struct {
	argvs  [][]string
	failOn func(args []string) error
	output string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	r.argvs = append(r.argvs, append([]string(nil), args...))
	if r.failOn != nil {
		if err := r.failOn(args); err != nil {
			return "", err
		}
	}
	return r.output, nil
}
