package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTransport, "down", http.StatusBadGateway)
	if !err.Retryable {
		t.Error("TRANSPORT should be retryable")
	}
	err = New(ErrCodeDecoding, "bad", http.StatusBadGateway)
	if err.Retryable {
		t.Error("DECODING should not be retryable")
	}
}

func TestServerStatus(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{503, true},
		{500, true},
		{429, true},
		{404, false},
		{400, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			err := ServerStatus(tc.code)
			if err.Code != ErrCodeServerStatus {
				t.Errorf("expected SERVER_STATUS, got %s", err.Code)
			}
			if err.StatusCode() != tc.code {
				t.Errorf("expected status %d, got %d", tc.code, err.StatusCode())
			}
			if err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v", tc.retryable)
			}
		})
	}
}

func TestStatusCodeOnlyForServerStatus(t *testing.T) {
	if Transport(nil).StatusCode() != 0 {
		t.Error("expected 0 for non-status errors")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", NetworkUnavailable())
	if !stderrors.Is(wrapped, NetworkUnavailable()) {
		t.Error("expected errors.Is to match by code")
	}
	if stderrors.Is(wrapped, Transport(nil)) {
		t.Error("different codes must not match")
	}
}

func TestUnwrapCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Storage("save", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestUnknownRequiresMessage(t *testing.T) {
	err := Unknown("")
	if !strings.Contains(err.Message, "unspecified") {
		t.Errorf("expected placeholder message, got %q", err.Message)
	}
	err = Unknown("artwork details not available")
	if !strings.Contains(err.Message, "artwork details") {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestSuggestionPerCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want string
	}{
		{NetworkUnavailable(), "internet connection"},
		{Decoding(nil), "refreshing"},
		{Storage("save", nil), "Clear the cache"},
		{ServerStatus(503), "server is experiencing"},
		{Transport(nil), "network"},
		{Unknown("x"), "contact support"},
	}
	for _, tc := range tests {
		t.Run(string(tc.err.Code), func(t *testing.T) {
			if !strings.Contains(tc.err.Suggestion(), tc.want) {
				t.Errorf("suggestion %q does not contain %q", tc.err.Suggestion(), tc.want)
			}
		})
	}
}

func TestQueueExhaustedDetails(t *testing.T) {
	err := QueueExhausted("abc", 3, fmt.Errorf("503"))
	if err.Details["queue_id"] != "abc" || err.Details["attempts"] != 3 {
		t.Errorf("unexpected details %v", err.Details)
	}
}

func TestToResponse(t *testing.T) {
	resp := NetworkUnavailable().ToResponse()
	if !resp.Error.Offline {
		t.Error("expected offline flag")
	}
	if resp.Error.Suggestion == "" {
		t.Error("expected suggestion")
	}
	resp = ServerStatus(503).ToResponse()
	if resp.Error.Offline {
		t.Error("server errors are not offline")
	}
	if resp.Error.Details["status_code"] != 503 {
		t.Errorf("expected status_code detail, got %v", resp.Error.Details)
	}
}

func TestFromErrorAndCodeOf(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("expected nil for nil")
	}
	app := FromError(fmt.Errorf("plain"))
	if app.Code != ErrCodeUnknown {
		t.Errorf("expected UNKNOWN, got %s", app.Code)
	}
	if CodeOf(fmt.Errorf("x: %w", Decoding(nil))) != ErrCodeDecoding {
		t.Error("expected DECODING through wrapping")
	}
	if CodeOf(nil) != "" {
		t.Error("expected empty code for nil")
	}
	if !IsOffline(NetworkUnavailable()) || IsOffline(Transport(nil)) {
		t.Error("IsOffline misclassified")
	}
}
