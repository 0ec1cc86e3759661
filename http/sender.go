package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	nethttp "net/http"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// netHTTPSender sends requests with a *net/http.Client
type netHTTPSender struct {
	httpClient *nethttp.Client
}

// NewNetHTTPSender returns a Sender backed by httpClient
func NewNetHTTPSender(httpClient *nethttp.Client) Sender {
	if httpClient == nil {
		httpClient = &nethttp.Client{Timeout: DefaultTimeout}
	}
	return &netHTTPSender{httpClient: httpClient}
}

// Send performs one round trip. Transport failures and body read failures are
// returned as *FatalRequestError.
func (s *netHTTPSender) Send(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := s.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, newFatalError(req, err, s.httpClient.Timeout)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		fatal := newFatalError(req, err, s.httpClient.Timeout)
		if fatal.kind == NetworkError {
			fatal.message = "failed to read response body"
		}
		return nil, fatal
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
		Request:    req,
	}, nil
}

// buildRequest constructs an *http.Request from req
func (s *netHTTPSender) buildRequest(ctx context.Context, req *Request) (*nethttp.Request, error) {
	target, err := req.FullURL()
	if err != nil {
		return nil, NewValidationError("invalid URL: "+err.Error(), "url")
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request: "+err.Error(), "url")
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get(headerContentType) == "" && req.Body != nil {
		httpReq.Header.Set(headerContentType, contentTypeJSON)
	}
	return httpReq, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
