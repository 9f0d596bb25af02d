package extract

import (
	"context"
	"sync"
)

// Reply is one scripted response from the Mock.
type Reply struct {
	Result Result
	Err    error
}

// Mock is a scripted Service for tests. Replies are consumed in order;
// when a script runs out its last entry repeats. An empty script yields
// zero Results.
type Mock struct {
	mu sync.Mutex

	ExtractScript []Reply
	InferScript   []Reply

	extractCalls int
	inferCalls   int
	lastMissing  []string
	lastAttempt  int
}

// Extract returns the next scripted extraction reply.
func (m *Mock) Extract(_ context.Context, _ string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractCalls++
	r := takeReply(m.ExtractScript, m.extractCalls)
	return r.Result, r.Err
}

// InferMissing returns the next scripted inference reply and records the
// missing fields and attempt number it was called with.
func (m *Mock) InferMissing(_ context.Context, _ string, _ Result, missing []string, attempt int) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inferCalls++
	m.lastMissing = append([]string(nil), missing...)
	m.lastAttempt = attempt
	r := takeReply(m.InferScript, m.inferCalls)
	return r.Result, r.Err
}

// ExtractCalls returns how many times Extract was called.
func (m *Mock) ExtractCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extractCalls
}

// InferCalls returns how many times InferMissing was called.
func (m *Mock) InferCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inferCalls
}

// LastMissing returns the missing fields from the most recent inference
// call.
func (m *Mock) LastMissing() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lastMissing...)
}

// LastAttempt returns the attempt number from the most recent inference
// call.
func (m *Mock) LastAttempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAttempt
}

func takeReply(script []Reply, call int) Reply {
	if len(script) == 0 {
		return Reply{}
	}
	if call > len(script) {
		return script[len(script)-1]
	}
	return script[call-1]
}
