package http

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-relay/logger"
)

// loggedEvent captures a single emitted log event
type loggedEvent struct {
	level   string
	message string
	fields  map[string]any
}

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{level: e.level, message: msg, fields: e.fields})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) { e.Msg(format) }

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

func newFakeLogger() *fakeLogger {
	return &fakeLogger{}
}

func (l *fakeLogger) newEvent(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent  { return l.newEvent("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.newEvent("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.newEvent("debug") }
func (l *fakeLogger) Warn() logger.LogEvent  { return l.newEvent("warn") }

func (l *fakeLogger) WithContext(any) logger.Logger            { return l }
func (l *fakeLogger) WithFields(map[string]any) logger.Logger { return l }

// byMessage returns the events logged with msg, in order
func (l *fakeLogger) byMessage(msg string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loggedEvent
	for _, ev := range l.events {
		if ev.message == msg {
			out = append(out, ev)
		}
	}
	return out
}

// recordingSleeper records requested delays without waiting
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// outcome is one scripted transport result
type outcome struct {
	status int
	body   string
	err    error
}

func respond(code int) outcome { return outcome{status: code} }

func fatalOutcome() outcome {
	return outcome{err: NewNetworkError("request execution failed", errConnRefused)}
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:1: connect: connection refused")

// scriptedSender replays outcomes in order, repeating the last one
type scriptedSender struct {
	mu       sync.Mutex
	outcomes []outcome
	requests []Request
}

func newScriptedSender(outcomes ...outcome) *scriptedSender {
	return &scriptedSender{outcomes: outcomes}
}

func (s *scriptedSender) Send(_ context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *req
	snapshot.Headers = make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		snapshot.Headers[k] = v
	}
	s.requests = append(s.requests, snapshot)

	o := s.outcomes[min(len(s.requests), len(s.outcomes))-1]
	if o.err != nil {
		return nil, o.err
	}
	return &Response{StatusCode: o.status, Body: []byte(o.body)}, nil
}

func (s *scriptedSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedSender) sent(i int) Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

// newTestConnector builds a connector around sender with a recording sleeper
func newTestConnector(t *testing.T, sender Sender, configure func(*Builder)) (*Connector, *recordingSleeper, *fakeLogger) {
	t.Helper()
	log := newFakeLogger()
	sleeper := &recordingSleeper{}
	b := NewBuilder(log).WithSender(sender).WithSleeper(sleeper)
	if configure != nil {
		configure(b)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c, sleeper, log
}
