package graph

import (
	"context"
	"maps"
	"sync"
)

// Query is a cypher statement and its parameters.
type Query struct {
	Cypher string
	Params map[string]any
}

// MemoryClient records writes instead of sending them anywhere. Failures can
// be scripted per call with FailNext.
type MemoryClient struct {
	mu           sync.Mutex
	writes       []Query
	failures     []error
	connectivity error
}

// NewMemoryClient creates an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// FailNext makes the next len(errs) writes return errs in order.
func (m *MemoryClient) FailNext(errs ...error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return Summary{}, err
	}

	m.writes = append(m.writes, Query{Cypher: cypher, Params: maps.Clone(params)})
	return Summary{}, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// Writes returns a snapshot of the successful writes.
func (m *MemoryClient) Writes() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.writes...)
}
