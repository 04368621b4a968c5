// Package fragment isolates the problem description from a fetched page and
// rewrites the references inside it so they resolve outside the site.
package fragment

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor finds a begin marker and returns the markup up to its balanced closing tag.
type Extractor struct {
	begin string
	tags  *regexp.Regexp
}

// NewExtractor creates an Extractor for the given begin marker.
// The marker must itself be an opening tag of kind tag, e.g. `<div class="x">` with tag "div".
// Parameters:
//   - begin: exact substring that starts the fragment.
//   - tag: element name whose opening and closing tags are balanced.
//
// Returns:
//   - *Extractor: ready-to-use extractor.
func NewExtractor(begin, tag string) *Extractor {
	name := regexp.QuoteMeta(tag)
	pattern := fmt.Sprintf(`(?i)(<%s\b[^<>]*>)|(</%s\b[^<>]*>)`, name, name)
	return &Extractor{
		begin: begin,
		tags:  regexp.MustCompile(pattern),
	}
}

// Extract returns the trimmed markup between the begin marker and its matching closing tag.
// The second return value is false when the marker is absent or the closing tag never balances.
func (e *Extractor) Extract(raw string) (string, bool) {
	start := strings.Index(raw, e.begin)
	if start == -1 {
		return "", false
	}
	bodyStart := start + len(e.begin)
	rest := raw[bodyStart:]

	// The marker is the first opening tag.
	depth := 1
	for _, m := range e.tags.FindAllStringSubmatchIndex(rest, -1) {
		if m[2] != -1 {
			depth++
		} else {
			depth--
		}
		if depth == 0 {
			return strings.TrimSpace(rest[:m[0]]), true
		}
	}
	return "", false
}
