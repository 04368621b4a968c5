package euler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/eulergen/internal/domain"
	"github.com/timmy/eulergen/internal/source"
)

const problemPage = `<html><body>
<div class="problem_content" role="problem">
<p>Find the area:</p>
<div class="figure"><img src="project/images/p015.png" alt=""></div>
</div>
<div id="footer"></div>
</body></html>`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAdapter(&Config{BaseURL: srv.URL, Timeout: 200 * time.Millisecond, UserAgent: "eulergen-test"})
}

func TestFetch_Success(t *testing.T) {
	var gotPath, gotAgent string
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(problemPage))
	})

	page, err := a.Fetch(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, problemPage, page)
	assert.Equal(t, "/problem=15", gotPath)
	assert.Equal(t, "eulergen-test", gotAgent)
	assert.Equal(t, domain.PageValid, a.Classify(page))
}

func TestFetch_ErrorStatus(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	page, err := a.Fetch(context.Background(), 1)
	assert.Empty(t, page)
	assert.True(t, errors.Is(err, source.ErrPageUnavailable))
	assert.Equal(t, domain.PageEmpty, a.Classify(page))
}

func TestFetch_Timeout(t *testing.T) {
	a := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	start := time.Now()
	page, err := a.Fetch(context.Background(), 1)
	assert.Error(t, err)
	assert.Empty(t, page)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassify(t *testing.T) {
	a := NewAdapter(nil)
	assert.Equal(t, domain.PageEmpty, a.Classify(""))
	assert.Equal(t, domain.PageEmpty, a.Classify(" \n\t"))
	assert.Equal(t, domain.PageInaccessible, a.Classify(`<div id="problems_table_page">`))
	assert.Equal(t, domain.PageValid, a.Classify("<html></html>"))
}

func TestExtractProblem(t *testing.T) {
	a := NewAdapter(&Config{BaseURL: "https://projecteuler.net/"})

	doc, ok := a.ExtractProblem(problemPage)
	require.True(t, ok)
	assert.Contains(t, doc, "<p>Find the area:</p>")
	assert.Contains(t, doc, "src=https://projecteuler.net/project/images/p015.png")
	assert.NotContains(t, doc, "footer")

	_, ok = a.ExtractProblem("<html></html>")
	assert.False(t, ok)
}

func TestHeadingAndURL(t *testing.T) {
	a := NewAdapter(nil)
	assert.Equal(t, "https://projecteuler.net/problem=3", a.ProblemURL(3))
	assert.Equal(t, `<a href="https://projecteuler.net/problem=3"><b>Problem 3</b></a></br>`, a.Heading(3))
	assert.Equal(t, SourceID, a.GetSourceID())
}
