package contract

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/huangsam/prstats/schema"
)

// MockPRProvider is a mock implementation of PRProvider for testing.
type MockPRProvider struct {
	mock.Mock
}

var _ PRProvider = &MockPRProvider{} // Compile-time check

// CollectRepository implements the PRProvider interface.
func (m *MockPRProvider) CollectRepository(ctx context.Context, repo string, window schema.ActivityWindow) ([]schema.PullRequest, error) {
	args := m.Called(ctx, repo, window)
	prs, _ := args.Get(0).([]schema.PullRequest)
	return prs, args.Error(1)
}

// BaseURL implements the PRProvider interface.
func (m *MockPRProvider) BaseURL() string {
	return m.Called().String(0)
}

// MockConfirmationSource is a mock implementation of ConfirmationSource for testing.
type MockConfirmationSource struct {
	mock.Mock
}

var _ ConfirmationSource = &MockConfirmationSource{} // Compile-time check

// Confirm implements the ConfirmationSource interface.
func (m *MockConfirmationSource) Confirm(prompt string) (string, error) {
	args := m.Called(prompt)
	return args.String(0), args.Error(1)
}

// MockPRCollector is a mock implementation of PRCollector for testing.
type MockPRCollector struct {
	mock.Mock
}

var _ PRCollector = &MockPRCollector{} // Compile-time check

// Collect implements the PRCollector interface.
func (m *MockPRCollector) Collect(ctx context.Context, repos []string, window schema.ActivityWindow) (map[string][]schema.PullRequest, error) {
	args := m.Called(ctx, repos, window)
	prs, _ := args.Get(0).(map[string][]schema.PullRequest)
	return prs, args.Error(1)
}
