package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmitter_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	em := NewLocalEmitter(fs)
	path := filepath.Join("/out", "x000_049", "Euler001.go")

	written, err := em.Emit(path, "first", false)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = em.Emit(path, "second", false)
	require.NoError(t, err)
	assert.False(t, written)
	got, err := em.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	written, err = em.Emit(path, "third", true)
	require.NoError(t, err)
	assert.True(t, written)
	got, err = em.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third", string(got))
}

func TestLocalEmitter_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	em := NewLocalEmitter(afero.NewOsFs())
	path := filepath.Join(dir, "a", "b", "Euler002.go")

	_, err := em.Emit(path, "package b\n", false)
	require.NoError(t, err)

	entries, err := afero.ReadDir(afero.NewOsFs(), filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Euler002.go", entries[0].Name())
	assert.Equal(t, "-rw-r--r--", entries[0].Mode().Perm().String())
}

func TestLocalEmitter_EmitOnceNeverOverwrites(t *testing.T) {
	em := NewLocalEmitter(afero.NewMemMapFs())
	path := "/out/eulerconfig.go"

	written, err := em.EmitOnce(path, "v1")
	require.NoError(t, err)
	assert.True(t, written)

	written, err = em.EmitOnce(path, "v2")
	require.NoError(t, err)
	assert.False(t, written)

	got, err := em.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestLocalEmitter_DestinationIsFile(t *testing.T) {
	fs := afero.NewOsFs()
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, afero.WriteFile(fs, out, []byte("not a dir"), 0644))

	_, err := NewLocalEmitter(fs).Emit(filepath.Join(out, "x000_049", "Euler001.go"), "x", false)
	assert.Error(t, err)
}

func TestLocalEmitter_ReadOnlyFilesystem(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	written, err := NewLocalEmitter(fs).Emit("/out/Euler001.go", "x", false)
	assert.Error(t, err)
	assert.False(t, written)
}

type fakeObjectStorage struct {
	objects map[string]string
	failOn  string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: map[string]string{}}
}

func (f *fakeObjectStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if key == f.failOn {
		return errors.New("upload refused")
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = string(b)
	return nil
}

func (f *fakeObjectStorage) GetURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (f *fakeObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func TestMirror_Publish(t *testing.T) {
	store := newFakeObjectStorage()
	m := NewMirror(store, "/out/example.com/euler", "/stubs/")

	url, err := m.Publish(context.Background(), "/out/example.com/euler/x000_049/Euler001.go", "package x000_049\n")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/stubs/x000_049/Euler001.go", url)
	assert.Equal(t, "package x000_049\n", store.objects["stubs/x000_049/Euler001.go"])
}

func TestMirror_PublishOnce(t *testing.T) {
	store := newFakeObjectStorage()
	m := NewMirror(store, "/out", "")

	uploaded, err := m.PublishOnce(context.Background(), "/out/eulerconfig.go", "v1")
	require.NoError(t, err)
	assert.True(t, uploaded)

	uploaded, err = m.PublishOnce(context.Background(), "/out/eulerconfig.go", "v2")
	require.NoError(t, err)
	assert.False(t, uploaded)
	assert.Equal(t, "v1", store.objects["eulerconfig.go"])
}

func TestMirror_RejectsOutsideRoot(t *testing.T) {
	m := NewMirror(newFakeObjectStorage(), "/out", "")
	_, err := m.Key("/elsewhere/Euler001.go")
	assert.Error(t, err)
}

func TestMirror_UploadFailure(t *testing.T) {
	store := newFakeObjectStorage()
	store.failOn = "x000_049/Euler003.go"
	m := NewMirror(store, "/out", "")

	_, err := m.Publish(context.Background(), "/out/x000_049/Euler003.go", "x")
	assert.ErrorContains(t, err, "upload refused")
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "localhost:9000", normalizeEndpoint("http://localhost:9000/"))
	assert.Equal(t, "acc.r2.cloudflarestorage.com", normalizeEndpoint("https://acc.r2.cloudflarestorage.com/bucket"))
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acc.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("localhost:9000"))
}
