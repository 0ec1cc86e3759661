// Package mocks provides testify mocks for relay interfaces.
package mocks

import (
	"context"
	"maps"
	"net/url"
	"slices"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-relay/http"
)

// MockSender provides a testify-based mock implementation of http.Sender.
// It also records a copy of every request it receives, in order.
//
// Example usage:
//
//	sender := &mocks.MockSender{}
//	sender.ExpectStatus(mock.Anything, 500).Twice()
//	sender.ExpectFatal(mock.Anything, errors.New("connection refused")).Once()
type MockSender struct {
	mock.Mock

	mu       sync.Mutex
	requests []http.Request
}

// Send implements http.Sender. Each call returns a fresh copy of the
// configured response.
func (m *MockSender) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	snapshot := *req
	snapshot.Headers = maps.Clone(req.Headers)
	snapshot.Query = cloneQuery(req.Query)
	m.requests = append(m.requests, snapshot)
	m.mu.Unlock()

	arguments := m.Called(ctx, req)

	var resp *http.Response
	if v, ok := arguments.Get(0).(*http.Response); ok && v != nil {
		copied := *v
		resp = &copied
	}
	return resp, arguments.Error(1)
}

// ExpectStatus expects a Send matching req and answers with an empty response
// of the given status
func (m *MockSender) ExpectStatus(req any, status int) *mock.Call {
	return m.On("Send", mock.Anything, req).Return(&http.Response{StatusCode: status}, nil)
}

// ExpectResponse expects a Send matching req and answers with resp
func (m *MockSender) ExpectResponse(req any, resp *http.Response) *mock.Call {
	return m.On("Send", mock.Anything, req).Return(resp, nil)
}

// ExpectFatal expects a Send matching req and fails it with a connection error
func (m *MockSender) ExpectFatal(req any, cause error) *mock.Call {
	return m.On("Send", mock.Anything, req).Return(nil, http.NewNetworkError("request execution failed", cause))
}

// Requests returns copies of the requests received so far
func (m *MockSender) Requests() []http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]http.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func cloneQuery(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = slices.Clone(vs)
	}
	return out
}

var _ http.Sender = (*MockSender)(nil)
