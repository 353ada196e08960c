package testing

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of the exec.Runner interface.
// Expectations match the tool name and the full argument slice:
//
//	r.On("Run", mock.Anything, "az", []string{"account", "show", "--output", "json"}).
//	    Return([]byte(`{...}`), nil)
type MockRunner struct {
	mock.Mock
}

// Run returns the scripted stdout of a command.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	called := m.Called(ctx, name, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	switch out := called.Get(0).(type) {
	case string:
		return []byte(out), called.Error(1)
	default:
		return out.([]byte), called.Error(1)
	}
}

// Start records a background command.
func (m *MockRunner) Start(ctx context.Context, name string, args ...string) error {
	return m.Called(ctx, name, args).Error(0)
}

// Args is a shorthand for an argument slice matcher.
func Args(args ...string) []string {
	return args
}
