package ai

import (
	"context"
	"fmt"
)

// MockLLMService is a scripted LLMService for testing.
type MockLLMService struct {
	// Responses are returned in order; Err short-circuits every call.
	Responses []string
	Err       error

	Calls [][]Message
	index int
}

// Chat returns the next scripted response.
func (m *MockLLMService) Chat(_ context.Context, messages []Message) (string, error) {
	m.Calls = append(m.Calls, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if m.index >= len(m.Responses) {
		return "", fmt.Errorf("mock: no response scripted for call %d", m.index)
	}
	resp := m.Responses[m.index]
	m.index++
	return resp, nil
}

// MockRemoteParser is a scripted RemoteParser for testing.
type MockRemoteParser struct {
	Response *ParseResponse
	Err      error

	Requests []ParseRequest
}

// Parse records the request and returns the scripted response.
func (m *MockRemoteParser) Parse(_ context.Context, req ParseRequest) (*ParseResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

var (
	_ LLMService   = (*MockLLMService)(nil)
	_ RemoteParser = (*MockRemoteParser)(nil)
)
