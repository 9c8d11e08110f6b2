package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpLimiterValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{MaxParallel: 2})
	require.NoError(t, err)
	t.Cleanup(fetcher.Close)
	require.Equal(t, 2, cap(fetcher.limiter))
	require.Equal(t, 45*time.Second, fetcher.navTimeout())
	require.Equal(t, 10*time.Second, fetcher.cfg.WaitTimeout)
}

func TestSessionCloseReleasesSlotOnce(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{MaxParallel: 1})
	require.NoError(t, err)
	t.Cleanup(fetcher.Close)

	sess, err := fetcher.openSession(context.Background())
	require.NoError(t, err)
	require.Len(t, fetcher.limiter, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = fetcher.openSession(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	sess.Close()
	sess.Close()
	require.Empty(t, fetcher.limiter)
	require.Error(t, sess.ctx.Err())

	again, err := fetcher.openSession(context.Background())
	require.NoError(t, err)
	again.Close()
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	netHeaders := toNetworkHeaders(http.Header{"X-Multi": {"a", "b"}, "X-One": {"c"}, "X-None": nil})
	require.Equal(t, []string{"a", "b"}, netHeaders["X-Multi"])
	require.Equal(t, "c", netHeaders["X-One"])
	require.NotContains(t, netHeaders, "X-None")
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  403,
			URL:     "https://www.glassdoor.ca/Job/jobs.htm",
			Headers: network.Headers{"X-Request-ID": "abc"},
		},
	})
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200, URL: "https://frame"},
	})
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://cdn/app.js"},
	})

	status, headers, url := meta.snapshotWithFallbacks("https://req", "")
	require.Equal(t, 403, status)
	require.Equal(t, "abc", headers.Get("X-Request-ID"))
	require.Equal(t, "https://www.glassdoor.ca/Job/jobs.htm", url)

	status, _, url = newResponseMeta().snapshotWithFallbacks("https://req", "https://final")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "https://final", url)
}

func TestNoopRenderer(t *testing.T) {
	t.Parallel()

	_, err := NewNoop().Render(context.Background(), RenderRequest{URL: "https://example.com"})
	require.ErrorIs(t, err, ErrUnavailable)
}
