// Package detector recognises pages that cannot yield listings as fetched:
// anti-automation challenges and client-rendered shells.
package detector

import (
	"bytes"
	"strings"
)

// Heuristic implements rule-based page classification.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

var challengeMarkers = []string{
	"captcha",
	"cf-challenge",
	"challenge-platform",
	"just a moment...",
	"verify you are human",
	"unusual traffic from your computer",
	"/checkpoint/challenge",
	"access denied",
	"px-captcha",
}

// Blocked reports whether the body looks like an anti-automation challenge.
// Only the head of large documents is inspected; listing pages routinely
// mention "captcha" in trailing script bundles.
func (h *Heuristic) Blocked(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	window := body
	if limit := h.BodyLengthThreshold * 8; len(window) > limit {
		window = window[:limit]
	}
	lower := strings.ToLower(string(window))
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NeedsRender reports whether a successfully fetched page is likely a
// client-rendered shell whose listings only appear after JavaScript runs.
func (h *Heuristic) NeedsRender(status int, body []byte) bool {
	if status != 200 {
		return false
	}
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			covered += total - start
			break
		}
		contentStart := start + tagClose + 1
		next := total
		if end := strings.Index(lower[contentStart:], closeTag); end != -1 {
			next = contentStart + end + len(closeTag)
		}
		covered += next - start
		pos = next
	}
	return covered*100/total >= 25
}
