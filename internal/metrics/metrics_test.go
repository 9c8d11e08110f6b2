package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Ca.Indeed.com/jobs", "ca.indeed.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitAndObserve(t *testing.T) {
	Init()
	Init()

	if fetchPagesTotal == nil || httpRequestsTotal == nil || courtesyDelaySeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveFetch("https://www.linkedin.com/jobs", 200, 512)
	if val := testutil.ToFloat64(fetchPagesTotal.WithLabelValues("www.linkedin.com", "200")); val != 1 {
		t.Errorf("expected one linkedin fetch, got %f", val)
	}
	if val := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("www.linkedin.com")); val != 512 {
		t.Errorf("expected 512 bytes, got %f", val)
	}

	IncActiveStrategies()
	IncActiveStrategies()
	DecActiveStrategies()
	if val := testutil.ToFloat64(activeStrategies); val != 1 {
		t.Errorf("expected one active strategy, got %f", val)
	}
	DecActiveStrategies()

	ObserveCourtesyDelay("indeed/html", 20*time.Millisecond)
	if val := testutil.CollectAndCount(courtesyDelaySeconds); val != 1 {
		t.Errorf("expected one courtesy series, got %d", val)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://google.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
