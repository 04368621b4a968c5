package fragment

import (
	"regexp"
	"strings"
)

// LinkRewriter turns relative image sources into absolute URLs under a fixed host.
type LinkRewriter struct {
	pattern *regexp.Regexp
	target  string
}

// NewLinkRewriter creates a rewriter for image sources starting with prefix.
// Parameters:
//   - baseURL: remote host the prefix is resolved against (e.g. https://projecteuler.net).
//   - prefix: relative path prefix to rewrite (e.g. project/images/).
//
// Returns:
//   - *LinkRewriter: rewriter applying one global substitution.
func NewLinkRewriter(baseURL, prefix string) *LinkRewriter {
	prefix = strings.TrimPrefix(prefix, "/")
	// ${1} attributes before src, ${2} remainder of the path, ${3} attributes after src.
	pattern := `(?i)<img([^>]*?)\ssrc=["']?` + regexp.QuoteMeta(prefix) + `([^"'\s>]+)["']?([^>]*)>`
	return &LinkRewriter{
		pattern: regexp.MustCompile(pattern),
		target:  strings.TrimSuffix(baseURL, "/") + "/" + prefix,
	}
}

// Rewrite returns fragment with every matching image reference made absolute.
func (r *LinkRewriter) Rewrite(fragment string) string {
	return r.pattern.ReplaceAllStringFunc(fragment, func(tag string) string {
		m := r.pattern.FindStringSubmatch(tag)
		tail := m[3]
		// The unquoted value would otherwise swallow a self-closing slash
		if strings.HasPrefix(tail, "/") {
			tail = " " + tail
		}
		return "<img" + m[1] + " src=" + r.target + m[2] + tail + ">"
	})
}
