package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/eulergen/internal/config"
	"github.com/timmy/eulergen/internal/domain"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/repository"
	"github.com/timmy/eulergen/internal/source/euler"
	"github.com/timmy/eulergen/internal/storage"
)

const (
	validPage        = `<html><body><div class="problem_content" role="problem"><p>Find the sum of all the multiples of 3 or 5 below 1000.</p></div></body></html>`
	inaccessiblePage = `<html><body><div id="problems_table_page">table</div></body></html>`
	noMarkerPage     = `<html><body><p>Problem without description</p></body></html>`
)

type fakeSource struct {
	*euler.Adapter
	pages  map[int]string
	delays map[int]time.Duration
	errs   map[int]error

	mu      sync.Mutex
	fetched []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		Adapter: euler.NewAdapter(&euler.Config{BaseURL: "https://projecteuler.net"}),
		pages:   map[int]string{},
		delays:  map[int]time.Duration{},
		errs:    map[int]error{},
	}
}

func (f *fakeSource) valid(ids ...int) *fakeSource {
	for _, id := range ids {
		f.pages[id] = validPage
	}
	return f
}

func (f *fakeSource) Fetch(_ context.Context, id int) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if d := f.delays[id]; d > 0 {
		time.Sleep(d)
	}
	if err := f.errs[id]; err != nil {
		return "", err
	}
	return f.pages[id], nil
}

func (f *fakeSource) maxFetched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := 0
	for _, id := range f.fetched {
		m = max(m, id)
	}
	return m
}

type failingEmitter struct {
	*storage.LocalEmitter
	failPath string
	dirErr   error
}

func (e *failingEmitter) Emit(path, content string, overwrite bool) (bool, error) {
	if path == e.failPath {
		return false, errors.New("no space left on device")
	}
	return e.LocalEmitter.Emit(path, content, overwrite)
}

func (e *failingEmitter) EnsureDir(dir string) error {
	if e.dirErr != nil {
		return e.dirErr
	}
	return e.LocalEmitter.EnsureDir(dir)
}

type fakeLedger struct {
	started  *domain.GenerationRun
	batches  [][]domain.GenerationOutcome
	finished bool
	errLog   string
	last     int
}

func (l *fakeLedger) StartRun(_ context.Context, run *domain.GenerationRun) error {
	l.started = run
	return nil
}

func (l *fakeLedger) RecordBatch(_ context.Context, _ string, outcomes []domain.GenerationOutcome, _ int) error {
	l.batches = append(l.batches, outcomes)
	return nil
}

func (l *fakeLedger) FinishRun(_ context.Context, _ string, lastGenerated int, errLog string) error {
	l.finished = true
	l.last = lastGenerated
	l.errLog = errLog
	return nil
}

func testSettings(batchSize, workers int) domain.Settings {
	return domain.Settings{
		DestinationRoot:  "/out/example.com/euler",
		ClassPrefix:      "Euler",
		Package:          "example.com/euler",
		SubpackagePrefix: "x",
		Extension:        "go",
		BatchSize:        batchSize,
		Workers:          workers,
		BucketWidth:      50,
	}
}

func quietContext() context.Context {
	var buf bytes.Buffer
	l := logger.New(&logger.Config{Level: "error", Format: "json", Output: &buf})
	return l.WithContext(context.Background())
}

func stubPath(id string) string {
	return filepath.Join("/out/example.com/euler", "x000_049", "Euler"+id+".go")
}

func TestGenerateAll_StopsAtEmptyPage(t *testing.T) {
	src := newFakeSource().valid(1, 2, 4, 5, 6)
	fs := afero.NewMemMapFs()
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(3, 2), nil, nil)

	stats, err := svc.GenerateAll(quietContext())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 2, stats.LastGenerated)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 3, src.maxFetched())
	assert.False(t, stats.Canceled)

	for _, id := range []string{"001", "002"} {
		ok, err := afero.Exists(fs, stubPath(id))
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
	ok, _ := afero.Exists(fs, stubPath("003"))
	assert.False(t, ok)
	ok, _ = afero.Exists(fs, "/out/example.com/euler/eulerconfig.go")
	assert.True(t, ok)
}

func TestGenerateAll_WaitsForSlowJob(t *testing.T) {
	src := newFakeSource().valid(1, 2, 3, 4, 5)
	src.pages[6] = inaccessiblePage
	src.delays[5] = 50 * time.Millisecond
	fs := afero.NewMemMapFs()
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(2, 2), nil, nil)

	stats, err := svc.GenerateAll(quietContext())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 5, stats.LastGenerated)
	assert.Equal(t, 6, src.maxFetched())

	ok, err := afero.Exists(fs, stubPath("005"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateAll_ExistingFilesContinue(t *testing.T) {
	src := newFakeSource().valid(1, 2)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, stubPath("001"), []byte("my solution"), 0644))
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(2, 2), nil, nil)

	stats, err := svc.GenerateAll(quietContext())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 2, stats.HighWater)

	got, err := afero.ReadFile(fs, stubPath("001"))
	require.NoError(t, err)
	assert.Equal(t, "my solution", string(got))
}

func TestGenerateAll_FilesystemFailureStops(t *testing.T) {
	src := newFakeSource().valid(1, 2, 3, 4, 5, 6)
	em := &failingEmitter{LocalEmitter: storage.NewLocalEmitter(afero.NewMemMapFs()), failPath: stubPath("002")}
	svc := NewGenerateService(src, em, testSettings(3, 3), nil, nil)

	stats, err := svc.GenerateAll(quietContext())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.LastGenerated)
	assert.Equal(t, 3, src.maxFetched())
}

func TestGenerateAll_FetchErrorIsEmpty(t *testing.T) {
	src := newFakeSource().valid(1, 2, 3)
	src.errs[2] = errors.New("dial tcp: i/o timeout")
	ledger := &fakeLedger{}
	svc := NewGenerateService(src, storage.NewLocalEmitter(afero.NewMemMapFs()), testSettings(3, 1), nil,
		&GenerateOptions{Ledger: ledger})

	stats, err := svc.GenerateAll(quietContext())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Batches)

	require.Len(t, ledger.batches, 1)
	second := ledger.batches[0][1]
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, domain.PageEmpty, second.Class)
	assert.False(t, second.Continue)
	assert.ErrorContains(t, second.Err, "i/o timeout")
	assert.True(t, ledger.finished)
	assert.Equal(t, 3, ledger.last)
	assert.Empty(t, ledger.errLog)
}

func TestGenerateAll_UnusableDestination(t *testing.T) {
	src := newFakeSource().valid(1)
	em := &failingEmitter{LocalEmitter: storage.NewLocalEmitter(afero.NewMemMapFs()), dirErr: errors.New("not a directory")}
	svc := NewGenerateService(src, em, testSettings(3, 1), nil, nil)

	_, err := svc.GenerateAll(quietContext())
	assert.ErrorIs(t, err, ErrDestination)
	assert.Zero(t, src.maxFetched())
}

func TestGenerateAll_CanceledBeforeFirstBatch(t *testing.T) {
	src := newFakeSource().valid(1, 2, 3)
	ledger := &fakeLedger{}
	svc := NewGenerateService(src, storage.NewLocalEmitter(afero.NewMemMapFs()), testSettings(3, 1), nil,
		&GenerateOptions{Ledger: ledger})

	ctx, cancel := context.WithCancel(quietContext())
	cancel()
	stats, err := svc.GenerateAll(ctx)
	require.NoError(t, err)

	assert.True(t, stats.Canceled)
	assert.Zero(t, stats.Batches)
	assert.Zero(t, src.maxFetched())
	assert.Equal(t, context.Canceled.Error(), ledger.errLog)
}

// cancelOnFetch cancels the run while the first batch is in flight.
type cancelOnFetch struct {
	*fakeSource
	id     int
	cancel context.CancelFunc
}

func (c *cancelOnFetch) Fetch(ctx context.Context, id int) (string, error) {
	if id == c.id {
		c.cancel()
	}
	return c.fakeSource.Fetch(ctx, id)
}

func TestGenerateAll_CanceledMidBatchKeepsLedger(t *testing.T) {
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "ledger.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })
	runs := repository.NewRunRepository(db)

	ctx, cancel := context.WithCancel(quietContext())
	defer cancel()
	src := &cancelOnFetch{fakeSource: newFakeSource().valid(1, 2, 3, 4, 5, 6), id: 1, cancel: cancel}
	fs := afero.NewMemMapFs()
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(3, 1), nil,
		&GenerateOptions{Ledger: runs})

	stats, err := svc.GenerateAll(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Canceled)
	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 3, stats.Written)
	assert.Equal(t, 3, src.maxFetched())

	run, err := runs.GetRun(context.Background(), stats.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Batches)
	assert.Equal(t, 3, run.WrittenItems)
	assert.Equal(t, 3, run.LastGenerated)

	problems, err := runs.ListProblems(context.Background(), stats.RunID)
	require.NoError(t, err)
	assert.Len(t, problems, 3)

	exists, err := afero.Exists(fs, stubPath("001"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGenerate_SingleProblem(t *testing.T) {
	src := newFakeSource().valid(7)
	fs := afero.NewMemMapFs()
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(50, 4), nil, nil)

	outcome, err := svc.Generate(quietContext(), 7, false)
	require.NoError(t, err)
	assert.True(t, outcome.Continue)
	assert.True(t, outcome.Written)
	assert.Equal(t, stubPath("007"), outcome.Path)

	got, err := afero.ReadFile(fs, outcome.Path)
	require.NoError(t, err)
	text := string(got)
	assert.Contains(t, text, "package x000_049")
	assert.Contains(t, text, `<a href="https://projecteuler.net/problem=7"><b>Problem 7</b></a></br>`)
	assert.Contains(t, text, "multiples of 3 or 5")
	assert.Contains(t, text, "type Euler007 struct{}")

	require.NoError(t, afero.WriteFile(fs, outcome.Path, []byte("edited"), 0644))
	outcome, err = svc.Generate(quietContext(), 7, false)
	require.NoError(t, err)
	assert.False(t, outcome.Written)

	outcome, err = svc.Generate(quietContext(), 7, true)
	require.NoError(t, err)
	assert.True(t, outcome.Written)
	got, _ = afero.ReadFile(fs, outcome.Path)
	assert.Contains(t, string(got), "type Euler007 struct{}")
}

func TestGenerate_MissingDescriptionStillWrites(t *testing.T) {
	src := newFakeSource()
	src.pages[9] = noMarkerPage
	fs := afero.NewMemMapFs()
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(50, 4), nil, nil)

	outcome, err := svc.Generate(quietContext(), 9, false)
	require.NoError(t, err)
	assert.True(t, outcome.Continue)

	got, err := afero.ReadFile(fs, outcome.Path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "Problem 9")
	assert.NotContains(t, string(got), "Problem without description")
}

func TestGenerate_InaccessibleWritesNothing(t *testing.T) {
	src := newFakeSource()
	src.pages[11] = inaccessiblePage
	fs := afero.NewMemMapFs()
	svc := NewGenerateService(src, storage.NewLocalEmitter(fs), testSettings(50, 4), nil, nil)

	outcome, err := svc.Generate(quietContext(), 11, false)
	require.NoError(t, err)
	assert.False(t, outcome.Continue)
	assert.Equal(t, domain.PageInaccessible, outcome.Class)
	assert.Empty(t, outcome.Path)
}
