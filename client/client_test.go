package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamwoolhether/pakfetch/client"
)

func TestClient_Fetch(t *testing.T) {
	content := []byte("pak bytes")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		_, _ = w.Write(content)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	body, size, err := c.Fetch(t.Context(), ts.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer body.Close()

	if size != int64(len(content)) {
		t.Errorf("size = %d, want %d", size, len(content))
	}

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("body = %q, want %q", got, content)
	}
}

func TestClient_Fetch_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantAuth bool
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "unauthorized", status: http.StatusUnauthorized, wantAuth: true},
		{name: "forbidden", status: http.StatusForbidden, wantAuth: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer ts.Close()

			c, err := client.Build()
			if err != nil {
				t.Fatalf("creating client: %v", err)
			}

			_, _, err = c.Fetch(t.Context(), ts.URL)

			var statusErr *client.UnexpectedStatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected *UnexpectedStatusError, got: %T: %v", err, err)
			}
			if statusErr.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", statusErr.StatusCode, tc.status)
			}
			if statusErr.Body != "nope" {
				t.Errorf("body = %q, want %q", statusErr.Body, "nope")
			}
			if !errors.Is(err, client.ErrUnexpectedStatusCode) {
				t.Error("expected error to wrap ErrUnexpectedStatusCode")
			}
			if got := errors.Is(err, client.ErrAuthFailure); got != tc.wantAuth {
				t.Errorf("errors.Is(ErrAuthFailure) = %v, want %v", got, tc.wantAuth)
			}
		})
	}
}

func TestClient_Fetch_ErrorBodyCapped(t *testing.T) {
	largeBody := bytes.Repeat([]byte("X"), 8192)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(largeBody)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	_, _, err = c.Fetch(t.Context(), ts.URL)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *UnexpectedStatusError, got: %T: %v", err, err)
	}

	const maxErrBodySize = 4 << 10
	if len(statusErr.Body) != maxErrBodySize {
		t.Errorf("expected body to be exactly %d bytes (capped), got %d", maxErrBodySize, len(statusErr.Body))
	}
}

func TestClient_Fetch_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	if _, _, err := c.Fetch(t.Context(), addr); err == nil {
		t.Fatal("expected error fetching from a closed server")
	}
}

func TestClient_Fetch_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, _, err := c.Fetch(ctx, ts.URL); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "pakfetch-test/1.0"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithUserAgent(expectedUA))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	body, _, err := c.Fetch(t.Context(), ts.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	body.Close()
}

func TestClient_WithTransport(t *testing.T) {
	var called bool
	custom := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		return http.DefaultTransport.RoundTrip(r)
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithTransport(custom), client.WithUserAgent("order/1.0"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	body, _, err := c.Fetch(t.Context(), ts.URL)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	body.Close()

	if !called {
		t.Error("custom transport was not called")
	}
}

func TestClient_OptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  client.Option
	}{
		{name: "nil client", opt: client.WithClient(nil)},
		{name: "nil transport", opt: client.WithTransport(nil)},
		{name: "negative timeout", opt: client.WithTimeout(-1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := client.Build(tc.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClient_WithClientAndWithTimeout(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}

	if _, err := client.Build(client.WithTimeout(5*time.Second), client.WithClient(custom)); err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if custom.Timeout != 5*time.Second {
		t.Errorf("expected WithTimeout to win, got %v", custom.Timeout)
	}
}

func TestClient_WithNoFollowRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/target", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithNoFollowRedirects())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, _, err = c.Fetch(t.Context(), ts.URL+"/redirect")

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusFound {
		t.Errorf("expected 302 surfaced as status error, got: %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
