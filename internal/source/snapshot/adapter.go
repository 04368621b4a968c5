// Package snapshot serves problem pages saved on disk, so stubs can be regenerated offline.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/timmy/eulergen/internal/source"
	"github.com/timmy/eulergen/internal/source/euler"
)

// ManifestFileName is the optional JSONL manifest naming the page file of each problem.
const ManifestFileName = "manifest.jsonl"

// ManifestItem represents one line of manifest.jsonl.
type ManifestItem struct {
	ID        int    `json:"id"`
	Filename  string `json:"filename"`
	SourceURL string `json:"source_url,omitempty"`
	SavedAt   string `json:"saved_at,omitempty"`
}

// PageFileName returns the conventional file name of a saved page.
func PageFileName(id int) string {
	return "problem=" + strconv.Itoa(id) + ".html"
}

// Adapter implements source.Source over a directory of saved pages.
// Page classification and extraction follow the live site's rules.
type Adapter struct {
	*euler.Adapter
	fs      afero.Fs
	dir     string
	once    sync.Once
	files   map[int]string
	loadErr error
}

// NewAdapter creates a new snapshot adapter.
// Parameters:
//   - fsys: filesystem holding the snapshot; nil uses the OS filesystem.
//   - dir: snapshot directory.
//   - baseURL: site base URL used for headings and image links.
// Returns:
//   - *Adapter: initialized snapshot adapter.
func NewAdapter(fsys afero.Fs, dir, baseURL string) *Adapter {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Adapter{
		Adapter: euler.NewAdapter(&euler.Config{BaseURL: baseURL}),
		fs:      fsys,
		dir:     dir,
	}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "snapshot:" + euler.SourceID
}

// Fetch reads the saved page of problem id. A missing page reads as empty,
// which ends a batch run the same way the live site does.
func (a *Adapter) Fetch(ctx context.Context, id int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.once.Do(func() { a.loadErr = a.loadManifest() })
	if a.loadErr != nil {
		return "", a.loadErr
	}

	name, ok := a.files[id]
	if !ok {
		name = PageFileName(id)
	}
	data, err := afero.ReadFile(a.fs, filepath.Join(a.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot of problem %d: %w", id, err)
	}
	return string(data), nil
}

// loadManifest reads manifest.jsonl when present. Malformed lines are skipped.
func (a *Adapter) loadManifest() error {
	a.files = map[int]string{}

	file, err := a.fs.Open(filepath.Join(a.dir, ManifestFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil || item.ID < 1 || item.Filename == "" {
			continue
		}
		a.files[item.ID] = item.Filename
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading manifest: %w", err)
	}
	return nil
}

var _ source.Source = (*Adapter)(nil)
