package testing

import "time"

// Logger levels used across test files.
const (
	TestLoggerLevelDebug    = "debug"
	TestLoggerLevelError    = "error"
	TestLoggerLevelDisabled = "disabled"
)

// Common values for connector tests.
const (
	TestServiceName = "test-service"
	TestBaseURL     = "https://api.example.com"
	TestEndpoint    = "/v1/items"
	TestTraceID     = "test-trace-id"
	TestToken       = "test-token"
	TestUsername    = "testuser"
	TestPassword    = "testpass"
)

// TestRetryInterval is a short retry interval for connector tests.
const TestRetryInterval = 10 * time.Millisecond
