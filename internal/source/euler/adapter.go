package euler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/eulergen/internal/domain"
	"github.com/timmy/eulergen/internal/fragment"
	"github.com/timmy/eulergen/internal/render"
	"github.com/timmy/eulergen/internal/source"
)

const (
	SourceID = "projecteuler"

	// DefaultBaseURL is served over https; plain http answers with a redirect.
	DefaultBaseURL = "https://projecteuler.net"

	// BeginMarker opens the problem description on a problem page.
	BeginMarker = `<div class="problem_content" role="problem">`
	// InaccessibleSentinel appears when the site falls back to the problem table.
	InaccessibleSentinel = "problems_table_page"
	// ImagePrefix is the relative path of problem images.
	ImagePrefix = "project/images/"

	defaultTimeout = 30 * time.Second
)

// Config holds configuration for the Project Euler adapter
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Adapter implements the Source interface for Project Euler problem pages
type Adapter struct {
	client    *resty.Client
	baseURL   string
	extractor *fragment.Extractor
	rewriter  *fragment.LinkRewriter
}

// NewAdapter creates a new Project Euler adapter.
// Parameters:
//   - cfg: base URL, per-request deadline and user agent; zero values use defaults.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	if cfg == nil {
		cfg = &Config{}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New()
	// Bound every fetch so a hung read cannot stall its batch forever
	client.SetTimeout(timeout)
	client.SetBaseURL(baseURL)
	client.SetHeader("Accept", "text/html")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Adapter{
		client:    client,
		baseURL:   baseURL,
		extractor: fragment.NewExtractor(BeginMarker, "div"),
		rewriter:  fragment.NewLinkRewriter(baseURL, ImagePrefix),
	}
}

// GetSourceID returns the unique identifier for this source
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// ProblemURL returns the page URL of problem id
func (a *Adapter) ProblemURL(id int) string {
	return a.baseURL + "/problem=" + strconv.Itoa(id)
}

// Fetch performs a single GET of the problem page and returns its body.
// Any transport failure, deadline expiry or non-2xx status yields an empty page and the cause.
func (a *Adapter) Fetch(ctx context.Context, id int) (string, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		Get("/problem=" + strconv.Itoa(id))
	if err != nil {
		return "", fmt.Errorf("failed to fetch problem %d: %w", id, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("problem %d: status %d: %w", id, resp.StatusCode(), source.ErrPageUnavailable)
	}
	return resp.String(), nil
}

// Classify reports whether page holds a problem
func (a *Adapter) Classify(page string) domain.PageClass {
	return source.Classify(page, InaccessibleSentinel)
}

// ExtractProblem returns the problem description with absolute image links
func (a *Adapter) ExtractProblem(page string) (string, bool) {
	doc, ok := a.extractor.Extract(page)
	if !ok {
		return "", false
	}
	return a.rewriter.Rewrite(doc), true
}

// Heading returns the documentation heading for problem id
func (a *Adapter) Heading(id int) string {
	return render.Heading(a.baseURL, id)
}
