package snapshot

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/source"
)

// Recorder wraps a live source and saves every non-empty page it fetches
// into a snapshot directory readable by Adapter.
type Recorder struct {
	source.Source
	fs  afero.Fs
	dir string
}

// NewRecorder creates a Recorder writing into dir.
func NewRecorder(inner source.Source, fsys afero.Fs, dir string) *Recorder {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Recorder{Source: inner, fs: fsys, dir: dir}
}

// Fetch delegates to the wrapped source and saves the page. Save failures are
// logged and never turn a successful fetch into a failed one.
func (r *Recorder) Fetch(ctx context.Context, id int) (string, error) {
	page, err := r.Source.Fetch(ctx, id)
	if err != nil || page == "" {
		return page, err
	}

	path := filepath.Join(r.dir, PageFileName(id))
	err = r.fs.MkdirAll(r.dir, 0755)
	if err == nil {
		err = afero.WriteFile(r.fs, path, []byte(page), 0644)
	}
	if err != nil {
		logger.With(logger.Fields{}).WithProblem(id).WithPath(path).WithError(err).Warn(ctx, "Failed to save snapshot")
	}
	return page, nil
}
