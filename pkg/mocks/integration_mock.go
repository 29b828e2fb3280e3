// Package mocks provides testify mocks for the collaborator contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
)

// MockEventSource is a mock implementation of integration.EventSource.
type MockEventSource struct {
	mock.Mock

	SourceType models.SourceType
}

func (m *MockEventSource) Source() models.SourceType {
	return m.SourceType
}

func (m *MockEventSource) FetchCandidates(ctx context.Context, cfg integration.SourceConfig, cursor string, limit int) ([]*models.RawEvent, string, error) {
	args := m.Called(ctx, cfg, cursor, limit)

	events, _ := args.Get(0).([]*models.RawEvent)

	return events, args.String(1), args.Error(2)
}

// MockMessenger is a mock implementation of integration.Messenger.
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, targetUserID, platform, text string) error {
	args := m.Called(ctx, targetUserID, platform, text)

	return args.Error(0)
}

func (m *MockMessenger) Reply(ctx context.Context, platform, chatID, text string) error {
	args := m.Called(ctx, platform, chatID, text)

	return args.Error(0)
}

// MockAIClient is a mock implementation of integration.AIClient.
type MockAIClient struct {
	mock.Mock
}

func (m *MockAIClient) Transform(ctx context.Context, mode models.AITransformMode, input string, params map[string]string) (string, error) {
	args := m.Called(ctx, mode, input, params)

	return args.String(0), args.Error(1)
}
