package photos

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient() *Client {
	return NewClient(&http.Client{}, 10*time.Second, nil)
}

func TestGetJSONDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte(`{"mediaItems": [{"id": "abc", "filename": "a.jpg"}]}`))
	}))
	defer server.Close()

	var resp ListMediaItemsResponse
	if err := newTestClient().GetJSON(server.URL, &resp); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if len(resp.MediaItems) != 1 || resp.MediaItems[0].ID != "abc" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestErrorTypeMapping(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeAuth},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusInternalServerError, ErrorTypeServerError},
		{http.StatusServiceUnavailable, ErrorTypeServerError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		var resp ListMediaItemsResponse
		err := newTestClient().GetJSON(server.URL, &resp)
		server.Close()

		if err == nil {
			t.Errorf("status %d: expected error", tt.status)
			continue
		}
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Errorf("status %d: expected *Error, got %T", tt.status, err)
			continue
		}
		if apiErr.Type != tt.expected {
			t.Errorf("status %d: expected type %s, got %s", tt.status, tt.expected, apiErr.Type)
		}
		if apiErr.Code != tt.status {
			t.Errorf("status %d: expected code %d, got %d", tt.status, tt.status, apiErr.Code)
		}
	}
}

func TestGetJSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	var resp ListMediaItemsResponse
	err := newTestClient().GetJSON(server.URL, &resp)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeParsing {
		t.Errorf("expected parsing error, got %v", err)
	}
}

func TestDownloadStreamsBody(t *testing.T) {
	payload := []byte("raw media bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	body, err := newTestClient().Download(server.URL)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}
}

func TestDownloadPropagatesTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient().Download(server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeAuth {
		t.Errorf("expected auth error, got %v", err)
	}
}
