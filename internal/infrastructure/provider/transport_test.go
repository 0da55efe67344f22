package provider_test

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func httpClient(resBody string, code int) *http.Client {
	return &http.Client{
		Timeout: 2 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			return &http.Response{
				StatusCode: code,
				Body:       io.NopCloser(strings.NewReader(resBody)),
				Header:     make(http.Header),
			}
		}),
	}
}

// recordingClient replies with a fixed body and keeps the requests it saw.
type recordingClient struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	body     string
	code     int
}

func (rc *recordingClient) client() *http.Client {
	return &http.Client{
		Timeout: 2 * time.Second,
		Transport: roundTripFunc(func(r *http.Request) *http.Response {
			var body string
			if r.Body != nil {
				b, _ := io.ReadAll(r.Body)
				body = string(b)
			}
			rc.mu.Lock()
			rc.requests = append(rc.requests, r)
			rc.bodies = append(rc.bodies, body)
			rc.mu.Unlock()
			return &http.Response{
				StatusCode: rc.code,
				Body:       io.NopCloser(strings.NewReader(rc.body)),
				Header:     make(http.Header),
			}
		}),
	}
}
