package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Mirror publishes emitted files to object storage under keys derived from
// their path relative to the destination root.
type Mirror struct {
	store  ObjectStorage
	root   string
	prefix string
}

// NewMirror creates a Mirror.
// Parameters:
//   - store: object storage receiving the files.
//   - root: local destination root the keys are relative to.
//   - prefix: optional key prefix inside the bucket.
// Returns:
//   - *Mirror: publisher for emitted files.
func NewMirror(store ObjectStorage, root, prefix string) *Mirror {
	return &Mirror{
		store:  store,
		root:   root,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key for a local file path.
func (m *Mirror) Key(localPath string) (string, error) {
	rel, err := filepath.Rel(m.root, localPath)
	if err != nil {
		return "", fmt.Errorf("failed to derive key for %s: %w", localPath, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside %s", localPath, m.root)
	}
	return path.Join(m.prefix, filepath.ToSlash(rel)), nil
}

// Publish uploads content under the key of localPath and returns its URL.
func (m *Mirror) Publish(ctx context.Context, localPath, content string) (string, error) {
	key, err := m.Key(localPath)
	if err != nil {
		return "", err
	}
	if err := m.store.Upload(ctx, key, strings.NewReader(content), int64(len(content)), "text/x-go; charset=utf-8"); err != nil {
		return "", err
	}
	return m.store.GetURL(key), nil
}

// PublishOnce uploads content only if the key is not present yet.
func (m *Mirror) PublishOnce(ctx context.Context, localPath, content string) (bool, error) {
	key, err := m.Key(localPath)
	if err != nil {
		return false, err
	}
	exists, err := m.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := m.store.Upload(ctx, key, strings.NewReader(content), int64(len(content)), "text/x-go; charset=utf-8"); err != nil {
		return false, err
	}
	return true, nil
}
