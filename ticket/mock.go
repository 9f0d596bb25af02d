package ticket

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Mock is an in-memory Client for tests and examples. It hands out
// sequential keys starting at 1001 and supports failure injection for
// exercising the retry path.
type Mock struct {
	// CreateFunc and GetFunc override the default behavior when set.
	CreateFunc func(ctx context.Context, req CreateRequest) (*Created, error)
	GetFunc    func(ctx context.Context, id string) (*Ticket, error)

	// FailureRate is the probability (0.0 to 1.0) that Create fails with
	// a transient error.
	FailureRate float64

	// FailCreate queues errors returned by successive Create calls, in
	// order, before the default behavior resumes.
	FailCreate []error

	// DropCreated makes Create report success without storing the
	// ticket, so a later Get finds nothing. Simulates a tracker that
	// acknowledged a write it lost.
	DropCreated bool

	// BaseURL overrides the browse URL base. Defaults to the example
	// Jira host.
	BaseURL string

	mu      sync.Mutex
	tickets map[string]*Ticket
	counter int
	creates int
	gets    int
}

// NewMock returns an empty Mock.
func NewMock() *Mock {
	return &Mock{tickets: make(map[string]*Ticket)}
}

// Create implements Client.
func (m *Mock) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}

	if len(m.FailCreate) > 0 {
		err := m.FailCreate[0]
		m.FailCreate = m.FailCreate[1:]
		if err != nil {
			return nil, err
		}
	} else if m.FailureRate > 0 && rand.Float64() < m.FailureRate {
		return nil, fmt.Errorf("create ticket: %w", ErrUnavailable)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	project := req.Project
	if project == "" {
		project = DefaultProject
	}
	base := m.BaseURL
	if base == "" {
		base = "https://jira.example.com"
	}

	if m.counter == 0 {
		m.counter = 1000
	}
	m.counter++
	key := fmt.Sprintf("%s-%d", project, m.counter)
	url := BrowseURL(base, key)

	if !m.DropCreated {
		if m.tickets == nil {
			m.tickets = make(map[string]*Ticket)
		}
		m.tickets[key] = &Ticket{
			ID:          key,
			URL:         url,
			Title:       req.Title,
			Description: req.Description,
			Labels:      append([]string(nil), req.Labels...),
			Project:     project,
			Status:      "Open",
		}
	}

	return &Created{ID: key, URL: url}, nil
}

// Get implements Client.
func (m *Mock) Get(ctx context.Context, id string) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}

	t, ok := m.tickets[id]
	if !ok {
		return nil, fmt.Errorf("get ticket %s: %w", id, ErrNotFound)
	}
	copy := *t
	return &copy, nil
}

// Forget removes a stored ticket, so later Gets report it missing.
func (m *Mock) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tickets, id)
}

// CreateCalls returns how many times Create was invoked.
func (m *Mock) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// GetCalls returns how many times Get was invoked.
func (m *Mock) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}
