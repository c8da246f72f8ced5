// Package sitemap downloads and parses XML sitemaps and sitemap indexes.
package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Entry is one page discovered in a sitemap.
type Entry struct {
	URL          string
	LastModified *time.Time
}

// FetchError reports an unreachable sitemap resource or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch sitemap %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch sitemap %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed sitemap XML.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse sitemap %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Config controls Reader behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Reader fetches a sitemap tree over HTTP.
type Reader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewReader builds a Reader.
func NewReader(cfg Config, logger *zap.Logger) *Reader {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// document covers both sitemap kinds; the root element name tells them apart.
type document struct {
	XMLName  xml.Name
	Sitemaps []location `xml:"sitemap"`
	URLs     []pageURL  `xml:"url"`
}

type location struct {
	Loc string `xml:"loc"`
}

type pageURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

func (d document) isIndex() bool {
	return strings.EqualFold(d.XMLName.Local, "sitemapindex")
}

// Fetch downloads the sitemap at rootURL, recursing into child sitemaps when
// the document is a sitemap index. It returns discovered entries deduplicated
// by URL and ordered newest-first by last modification date.
//
// A failing child sitemap does not abort its siblings: collected entries are
// returned together with a joined error describing the failed children. A nil
// entry slice means the root resource itself could not be read.
func (r *Reader) Fetch(ctx context.Context, rootURL string) ([]Entry, error) {
	root, err := r.download(ctx, rootURL)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator()
	var childErrs []error
	if root.isIndex() {
		r.logger.Info("sitemap index detected",
			zap.String("url", rootURL),
			zap.Int("children", len(root.Sitemaps)),
		)
		visited := map[string]bool{rootURL: true}
		r.walkIndex(ctx, root, visited, acc, &childErrs)
	} else {
		acc.add(root.URLs, r.logger)
	}

	entries := acc.sorted()
	r.logger.Info("sitemap fetch complete",
		zap.String("url", rootURL),
		zap.Int("urls", len(entries)),
		zap.Int("failed_children", len(childErrs)),
	)
	return entries, errors.Join(childErrs...)
}

func (r *Reader) walkIndex(
	ctx context.Context,
	idx document,
	visited map[string]bool,
	acc *accumulator,
	childErrs *[]error,
) {
	for _, child := range idx.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if loc == "" || visited[loc] {
			continue
		}
		visited[loc] = true

		doc, err := r.download(ctx, loc)
		if err != nil {
			r.logger.Warn("child sitemap failed", zap.String("url", loc), zap.Error(err))
			*childErrs = append(*childErrs, err)
			continue
		}
		if doc.isIndex() {
			r.walkIndex(ctx, doc, visited, acc, childErrs)
			continue
		}
		acc.add(doc.URLs, r.logger)
	}
}

func (r *Reader) download(ctx context.Context, rawURL string) (document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return document{}, &FetchError{URL: rawURL, Err: err}
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return document{}, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return document{}, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return document{}, &FetchError{URL: rawURL, Err: err}
	}

	var doc document
	if err := xml.Unmarshal(body, &doc); err != nil {
		return document{}, &ParseError{URL: rawURL, Err: err}
	}
	return doc, nil
}

// accumulator deduplicates entries by URL, keeping first-seen document order
// and letting the last-seen lastmod win on duplicates.
type accumulator struct {
	order   []string
	entries map[string]*Entry
}

func newAccumulator() *accumulator {
	return &accumulator{entries: make(map[string]*Entry)}
}

func (a *accumulator) add(urls []pageURL, logger *zap.Logger) {
	for _, u := range urls {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		lastMod := parseLastMod(u.LastMod)
		if u.LastMod != "" && lastMod == nil {
			logger.Debug("unparseable lastmod", zap.String("url", loc), zap.String("lastmod", u.LastMod))
		}
		if existing, ok := a.entries[loc]; ok {
			if lastMod != nil {
				existing.LastModified = lastMod
			}
			continue
		}
		a.order = append(a.order, loc)
		a.entries[loc] = &Entry{URL: loc, LastModified: lastMod}
	}
}

func (a *accumulator) sorted() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, loc := range a.order {
		out = append(out, *a.entries[loc])
	}
	// Newest first; undated entries keep document order at the tail.
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LastModified, out[j].LastModified
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.After(*lj)
		}
	})
	return out
}

// lastmodLayouts covers the formats seen in the wild, from full zoned
// timestamps down to bare dates.
var lastmodLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseLastMod(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range lastmodLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
