package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-relay/http"
)

// MockClient provides a testify-based mock implementation of http.Client for
// code that depends on a connector.
//
// Example usage:
//
//	client := &mocks.MockClient{}
//	client.On("Get", mock.Anything, mock.Anything).Return(&http.Response{StatusCode: 200}, nil)
type MockClient struct {
	mock.Mock
}

// Get implements http.Client
func (m *MockClient) Get(ctx context.Context, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, req))
}

// Post implements http.Client
func (m *MockClient) Post(ctx context.Context, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, req))
}

// Put implements http.Client
func (m *MockClient) Put(ctx context.Context, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, req))
}

// Patch implements http.Client
func (m *MockClient) Patch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, req))
}

// Delete implements http.Client
func (m *MockClient) Delete(ctx context.Context, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, req))
}

// Do implements http.Client
func (m *MockClient) Do(ctx context.Context, method string, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, method, req))
}

// Send implements http.Client
func (m *MockClient) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return result(m.Called(ctx, req))
}

func result(arguments mock.Arguments) (*http.Response, error) {
	resp, _ := arguments.Get(0).(*http.Response)
	return resp, arguments.Error(1)
}

// MockAuthenticator provides a testify-based mock implementation of http.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

// Authenticate implements http.Authenticator
func (m *MockAuthenticator) Authenticate(ctx context.Context, req *http.Request) error {
	return m.Called(ctx, req).Error(0)
}

var (
	_ http.Client        = (*MockClient)(nil)
	_ http.Authenticator = (*MockAuthenticator)(nil)
)
