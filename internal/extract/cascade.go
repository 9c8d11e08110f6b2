// Package extract pulls raw job items out of listing HTML using ordered
// selector cascades.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/jobs"
)

// DefaultMinCandidates is the container count a selector must exceed to win.
const DefaultMinCandidates = 3

// ErrLayoutMismatch is returned when no container selector qualifies.
var ErrLayoutMismatch = errors.New("no container selector matched")

// Field extracts one raw field from a container element. Selectors are
// tried in order; an empty selector addresses the container itself.
type Field struct {
	Name      string
	Selectors []string
	// Attr reads an attribute instead of the element text.
	Attr string
}

// Profile is an ordered cascade for one page layout.
type Profile struct {
	Containers    []string
	Fields        []Field
	MinCandidates int
}

// Result reports which container selector won and what it yielded.
type Result struct {
	Container string
	Items     []jobs.RawItem
	Skipped   int
}

// Parse builds a document from an HTML body.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Extract applies the cascade to doc. The first container selector matching
// more than MinCandidates elements wins; lower-priority selectors are not
// consulted. Items whose extraction fails are skipped without affecting
// their siblings.
func Extract(doc *goquery.Document, p Profile, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := p.MinCandidates
	if threshold <= 0 {
		threshold = DefaultMinCandidates
	}
	for _, selector := range p.Containers {
		sel := doc.Find(selector)
		if sel.Length() <= threshold {
			continue
		}
		res := Result{Container: selector, Items: make([]jobs.RawItem, 0, sel.Length())}
		sel.Each(func(i int, s *goquery.Selection) {
			item, err := extractItem(s, p.Fields)
			if err != nil {
				res.Skipped++
				logger.Debug("item extraction failed",
					zap.String("container", selector),
					zap.Int("index", i),
					zap.Error(err),
				)
				return
			}
			if len(item) == 0 {
				res.Skipped++
				return
			}
			res.Items = append(res.Items, item)
		})
		return res, nil
	}
	return Result{}, ErrLayoutMismatch
}

func extractItem(s *goquery.Selection, fields []Field) (item jobs.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			item = nil
			err = fmt.Errorf("panic extracting item: %v", r)
		}
	}()
	item = jobs.RawItem{}
	for _, f := range fields {
		// Several rules may target one field; the first to yield wins.
		if _, done := item[f.Name]; done {
			continue
		}
		if v := fieldValue(s, f); v != "" {
			item[f.Name] = v
		}
	}
	return item, nil
}

func fieldValue(s *goquery.Selection, f Field) string {
	selectors := f.Selectors
	if len(selectors) == 0 {
		selectors = []string{""}
	}
	for _, selector := range selectors {
		target := s
		if selector != "" {
			target = s.Find(selector).First()
		}
		if target.Length() == 0 {
			continue
		}
		var v string
		if f.Attr != "" {
			v, _ = target.Attr(f.Attr)
		} else {
			v = target.Text()
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
