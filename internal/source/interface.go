package source

import (
	"context"
	"errors"
	"strings"

	"github.com/timmy/eulergen/internal/domain"
)

// ErrPageUnavailable is returned by Fetch when the remote answered with a non-success status.
var ErrPageUnavailable = errors.New("page unavailable")

// Source defines the interface for numbered problem page sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// Fetch retrieves the raw page of problem id.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - id: problem identifier substituted into the page URL.
	// Returns:
	//   - string: full response body; empty on any failure.
	//   - error: the failure cause, if any. Callers treat it like an empty page.
	Fetch(ctx context.Context, id int) (string, error)

	// Classify decides whether a fetched page holds a problem.
	// Parameters:
	//   - page: raw page text.
	// Returns:
	//   - domain.PageClass: valid, empty or inaccessible.
	Classify(page string) domain.PageClass

	// ExtractProblem isolates the problem description and makes its links absolute.
	// Parameters:
	//   - page: raw page text.
	// Returns:
	//   - string: description fragment.
	//   - bool: false when no balanced description was found.
	ExtractProblem(page string) (string, bool)

	// Heading returns the documentation heading linking to problem id.
	Heading(id int) string
}

// Classify applies the classification rule shared by page sources: blank pages are
// empty, pages containing sentinel are inaccessible, everything else is valid.
func Classify(page, sentinel string) domain.PageClass {
	if strings.TrimSpace(page) == "" {
		return domain.PageEmpty
	}
	if sentinel != "" && strings.Contains(page, sentinel) {
		return domain.PageInaccessible
	}
	return domain.PageValid
}
