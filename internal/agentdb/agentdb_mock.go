package agentdb

import (
	"context"

	"github.com/huangsam/sca/internal/contract"
	"github.com/huangsam/sca/schema"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of Backend for testing.
type MockBackend struct {
	mock.Mock
}

var _ contract.Backend = &MockBackend{} // Compile-time check

// Dialect implements the Backend interface.
func (m *MockBackend) Dialect() contract.Dialect {
	ret := m.Called()
	return ret.Get(0).(contract.Dialect)
}

// Connect implements the Backend interface.
func (m *MockBackend) Connect(ctx context.Context, agentID string) (contract.AgentConn, error) {
	ret := m.Called(ctx, agentID)
	conn, _ := ret.Get(0).(contract.AgentConn)
	return conn, ret.Error(1)
}

// MockAgentConn is a mock implementation of AgentConn for testing.
type MockAgentConn struct {
	mock.Mock
}

var _ contract.AgentConn = &MockAgentConn{} // Compile-time check

// Execute implements the AgentConn interface.
func (m *MockAgentConn) Execute(ctx context.Context, query string, args ...any) (schema.DBResponse, error) {
	ret := m.Called(ctx, query, args)
	resp, _ := ret.Get(0).(schema.DBResponse)
	return resp, ret.Error(1)
}

// Close implements the AgentConn interface.
func (m *MockAgentConn) Close() error {
	ret := m.Called()
	return ret.Error(0)
}
