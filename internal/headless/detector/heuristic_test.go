package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristic_Blocked(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.Blocked([]byte(`<title>Just a moment...</title>`)))
	require.True(t, h.Blocked([]byte(`<div class="g-recaptcha"></div>`)))
	require.False(t, h.Blocked([]byte(`<ul><li class="job">Go dev</li></ul>`)))
	require.False(t, h.Blocked(nil))
}

func TestHeuristic_BlockedIgnoresTrailingMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10)
	body := "<html>" + strings.Repeat("<li>job</li>", 50) + "<script>captcha()</script>"
	require.False(t, h.Blocked([]byte(body)))
}

func TestHeuristic_NeedsRender_EmptyBody(t *testing.T) {
	t.Parallel()

	require.True(t, NewHeuristic(100).NeedsRender(200, nil))
}

func TestHeuristic_NeedsRender_SPAMarkers(t *testing.T) {
	t.Parallel()

	require.True(t, NewHeuristic(100).NeedsRender(200, []byte(`<div id="__next"></div>`)))
}

func TestHeuristic_NeedsRender_ScriptDensity(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><script>var a=1;</script><p>t</p></html>`)
	require.True(t, NewHeuristic(1000).NeedsRender(200, body))
}

func TestHeuristic_NeedsRender_Non200(t *testing.T) {
	t.Parallel()

	require.False(t, NewHeuristic(100).NeedsRender(404, []byte("not found")))
}
