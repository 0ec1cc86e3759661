// Package testing provides testing utilities for relay connectors.
//
// # Mocks
//
// The mocks subpackage provides testify-based implementations of the
// http.Sender, http.Client and http.Authenticator interfaces, so connector
// behavior (middleware, retries, exhaustion) can be tested without a network:
//
//	sender := &mocks.MockSender{}
//	sender.ExpectStatus(mock.Anything, nethttp.StatusServiceUnavailable).Once()
//	sender.ExpectStatus(mock.Anything, nethttp.StatusOK).Once()
//
//	conn, _ := http.NewBuilder(log).WithSender(sender).WithRetry(http.NewRetry(3)).Build()
//
// Import the subpackage you need:
//
//	import "github.com/gaborage/go-relay/testing/mocks"
package testing
