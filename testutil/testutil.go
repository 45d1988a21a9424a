// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/channel"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// Environment variables that enable backend tests against real servers
const (
	PostgresURLEnv = "LIVEPOLL_TEST_POSTGRES_URL"
	RedisURLEnv    = "LIVEPOLL_TEST_REDIS_URL"
)

// SetupTestStore opens a fresh in-memory SQLite store with the full schema
func SetupTestStore(t *testing.T) *store.SQL {
	t.Helper()

	st, err := store.OpenSQL(context.Background(), store.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return st
}

// SetupTestChannel returns an in-process event channel closed at cleanup
func SetupTestChannel(t *testing.T) *channel.Memory {
	t.Helper()

	ch := channel.NewMemory()
	t.Cleanup(func() { ch.Close() })

	return ch
}

// RequireEnv skips the test unless the variable is set and returns its value
func RequireEnv(t *testing.T, name string) string {
	t.Helper()

	v := os.Getenv(name)
	if v == "" {
		t.Skipf("%s not set", name)
	}
	return v
}

// GetTestConfig returns a standard test configuration with short stream timers
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		Heartbeat:    50 * time.Millisecond,
		RetryDelay:   10 * time.Millisecond,
		LogLevel:     "info",
	}
}

// CreateTestPoll stores a poll and returns its ID with the option IDs in order
func CreateTestPoll(t *testing.T, st store.Store, question string, options ...string) (string, []string) {
	t.Helper()

	ctx := context.Background()
	pollID, err := st.CreatePoll(ctx, question, options)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	poll, err := st.GetPoll(ctx, pollID)
	if err != nil {
		t.Fatalf("Failed to read test poll: %v", err)
	}

	optionIDs := make([]string, 0, len(poll.Options))
	for _, opt := range poll.Options {
		optionIDs = append(optionIDs, opt.ID)
	}

	return pollID, optionIDs
}

// GetTestPoll reads a poll straight from the store
func GetTestPoll(t *testing.T, st store.Store, pollID string) models.Poll {
	t.Helper()

	poll, err := st.GetPoll(context.Background(), pollID)
	if err != nil {
		t.Fatalf("Failed to read poll %s: %v", pollID, err)
	}
	return poll
}

// OptionCount returns the count of one option, failing if it is absent
func OptionCount(t *testing.T, poll models.Poll, optionID string) int64 {
	t.Helper()

	for _, opt := range poll.Options {
		if opt.ID == optionID {
			return opt.Count
		}
	}
	t.Fatalf("Option %s not in poll %s", optionID, poll.ID)
	return 0
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
