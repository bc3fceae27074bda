package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) Simulate(ctx context.Context, call models.PreparedCall) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockChainClient) Write(ctx context.Context, call models.PreparedCall) (string, error) {
	args := m.Called(ctx, call)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) ReadContract(ctx context.Context, call models.ReadCall) ([]any, error) {
	args := m.Called(ctx, call)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]any), args.Error(1)
}

func (m *MockChainClient) EstimateGas(ctx context.Context, call models.PreparedCall) (uint64, error) {
	args := m.Called(ctx, call)
	return args.Get(0).(uint64), args.Error(1)
}

// callTo matches prepared calls by target function name
func callTo(functionName string) any {
	return mock.MatchedBy(func(call models.PreparedCall) bool {
		return call.FunctionName == functionName
	})
}

// callWithArg matches prepared calls by function name and first argument
func callWithArg(functionName string, first any) any {
	return mock.MatchedBy(func(call models.PreparedCall) bool {
		return call.FunctionName == functionName && len(call.Args) > 0 && call.Args[0] == first
	})
}

// MockProgressSink records progress events
type MockProgressSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(string)  {}
func (m *MockProgressSink) Error(string) {}

func (m *MockProgressSink) stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Stage)
	}
	return out
}

// memoryStore is an in-memory QueueStore
type memoryStore struct {
	mu       sync.Mutex
	txs      []*models.QueueTransaction
	activeID string
	saves    int
	pruned   int
	cleanups int
}

func (s *memoryStore) Load(context.Context) ([]*models.QueueTransaction, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.txs), s.activeID
}

func (s *memoryStore) Save(_ context.Context, txs []*models.QueueTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = cloneAll(txs)
	s.saves++
}

func (s *memoryStore) SaveActiveID(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

func (s *memoryStore) CleanupStale(context.Context, time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups++
	return s.pruned
}

func (s *memoryStore) persisted() ([]*models.QueueTransaction, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.txs), s.activeID
}

func cloneAll(txs []*models.QueueTransaction) []*models.QueueTransaction {
	out := make([]*models.QueueTransaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.Clone()
	}
	return out
}

// noSleep records requested delays without waiting
type noSleep struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, d)
	return n.err
}
