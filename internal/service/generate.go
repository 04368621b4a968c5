package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/eulergen/internal/domain"
	"github.com/timmy/eulergen/internal/layout"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/metrics"
	"github.com/timmy/eulergen/internal/render"
	"github.com/timmy/eulergen/internal/source"
	"github.com/timmy/eulergen/internal/storage"
)

// ErrDestination is returned before any batch starts when the destination root is unusable.
var ErrDestination = errors.New("unusable destination")

// RunLedger records generation runs. *repository.RunRepository implements it.
type RunLedger interface {
	StartRun(ctx context.Context, run *domain.GenerationRun) error
	RecordBatch(ctx context.Context, runID string, outcomes []domain.GenerationOutcome, lastGenerated int) error
	FinishRun(ctx context.Context, runID string, lastGenerated int, errLog string) error
}

// GenerateService runs the fetch, classify, extract, render and emit pipeline.
type GenerateService struct {
	source   source.Source
	emitter  storage.FileEmitter
	mirror   *storage.Mirror
	ledger   RunLedger
	recorder metrics.Recorder
	logger   *logger.Logger
	settings domain.Settings
	paths    layout.Paths
}

// GenerateOptions holds the optional collaborators of a GenerateService.
type GenerateOptions struct {
	Mirror   *storage.Mirror
	Ledger   RunLedger
	Recorder metrics.Recorder
}

// NewGenerateService creates a new generate service.
// Parameters:
//   - src: problem page source.
//   - emitter: file emitter for stubs and the config file.
//   - settings: run settings snapshot.
//   - log: fallback logger when the context carries none.
//   - opts: optional mirror, ledger and metrics recorder; nil disables them.
// Returns:
//   - *GenerateService: service ready to generate.
func NewGenerateService(
	src source.Source,
	emitter storage.FileEmitter,
	settings domain.Settings,
	log *logger.Logger,
	opts *GenerateOptions,
) *GenerateService {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &GenerateService{
		source:   src,
		emitter:  emitter,
		mirror:   opts.Mirror,
		ledger:   opts.Ledger,
		recorder: recorder,
		logger:   log,
		settings: settings,
		paths: layout.Paths{
			Root:        settings.DestinationRoot,
			BucketWidth: settings.BucketWidth,
			Prefix:      settings.SubpackagePrefix,
			ClassPrefix: settings.ClassPrefix,
			Extension:   settings.Extension,
		},
	}
}

func (s *GenerateService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil && l != logger.GetDefault() {
		return l
	}
	return s.logger
}

// RunStats summarizes one GenerateAll run.
type RunStats struct {
	RunID         string    `json:"run_id"`
	Batches       int       `json:"batches"`
	LastGenerated int       `json:"last_generated"` // high-water mark of the final batch
	HighWater     int       `json:"high_water"`     // highest continuing identifier over the whole run
	Written       int       `json:"written"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	Canceled      bool      `json:"canceled"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

func (st *RunStats) add(o domain.GenerationOutcome) {
	switch o.Status() {
	case "written":
		st.Written++
	case "skipped":
		st.Skipped++
	case "failed":
		st.Failed++
	}
}

// Generate produces the stub of a single problem.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: problem identifier.
//   - overwrite: replace an existing stub.
// Returns:
//   - *domain.GenerationOutcome: outcome of the job.
//   - error: non-nil only when the destination root is unusable.
func (s *GenerateService) Generate(ctx context.Context, id int, overwrite bool) (*domain.GenerationOutcome, error) {
	ctx = logger.SetSource(ctx, s.source.GetSourceID())
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	outcome := s.runJob(ctx, domain.GenerationJob{ID: id, Settings: s.settings, Overwrite: overwrite})
	return &outcome, nil
}

// GenerateAll walks identifiers from 1 upwards in fixed-size batches until a
// batch contains a job that does not continue or ctx is canceled.
// Parameters:
//   - ctx: cancellation stops the loop before the next batch; running jobs finish.
// Returns:
//   - *RunStats: counters of the run.
//   - error: non-nil when the run could not start.
func (s *GenerateService) GenerateAll(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}
	ctx = logger.SetRunID(ctx, stats.RunID)
	ctx = logger.SetSource(ctx, s.source.GetSourceID())

	s.log(ctx).WithFields(logger.Fields{
		"destination": s.settings.DestinationRoot,
		"batch_size":  s.settings.BatchSize,
		"workers":     s.settings.Workers,
	}).Info("Starting generation")

	if err := s.prepare(ctx); err != nil {
		return nil, err
	}

	ledger := s.ledger
	if ledger != nil {
		run := &domain.GenerationRun{
			ID:          stats.RunID,
			Source:      s.source.GetSourceID(),
			Destination: s.settings.DestinationRoot,
			StartedAt:   stats.StartTime,
		}
		if err := ledger.StartRun(ctx, run); err != nil {
			s.log(ctx).WithError(err).Warn("Run ledger unavailable, continuing without it")
			ledger = nil
		}
	}

	pool := s.startPool(context.WithoutCancel(ctx))
	defer pool.stop()

	batchSize := s.settings.BatchSize
	continueGenerating := true
	for counter := 0; continueGenerating; counter++ {
		if ctx.Err() != nil {
			stats.Canceled = true
			break
		}

		from := counter*batchSize + 1
		to := (counter + 1) * batchSize
		started := time.Now()

		outcomes := pool.runBatch(s.settings, from, to)
		s.recorder.ObserveBatchDuration(time.Since(started))

		lastGenerated := 0
		for _, o := range outcomes {
			stats.add(o)
			if o.Continue {
				lastGenerated = max(lastGenerated, o.ID)
			} else {
				continueGenerating = false
			}
		}
		stats.Batches++
		stats.LastGenerated = lastGenerated
		stats.HighWater = max(stats.HighWater, lastGenerated)
		s.recorder.SetLastGenerated(stats.HighWater)

		logger.With(logger.Fields{}).
			WithBatch(from, to).
			WithCount(len(outcomes)).
			WithDuration(time.Since(started)).
			Info(ctx, "Generated %d to %d", from, lastGenerated)

		if ledger != nil {
			// The batch already ran, so its record survives cancellation
			if err := ledger.RecordBatch(context.WithoutCancel(ctx), stats.RunID, outcomes, lastGenerated); err != nil {
				s.log(ctx).WithError(err).Warn("Failed to record batch")
			}
		}
	}

	stats.EndTime = time.Now()

	outcome := "completed"
	errLog := ""
	if stats.Canceled {
		outcome = "canceled"
		errLog = context.Cause(ctx).Error()
	}
	s.recorder.IncRunOutcome(outcome)
	if ledger != nil {
		if err := ledger.FinishRun(context.WithoutCancel(ctx), stats.RunID, stats.HighWater, errLog); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to finish run record")
		}
	}

	s.log(ctx).WithFields(logger.Fields{
		"batches":   stats.Batches,
		"written":   stats.Written,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
		"canceled":  stats.Canceled,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
		"highwater": stats.HighWater,
	}).Info("Generation finished")

	return stats, nil
}

// prepare checks the destination root and emits the singleton config file.
func (s *GenerateService) prepare(ctx context.Context) error {
	if err := s.emitter.EnsureDir(s.paths.Root); err != nil {
		return fmt.Errorf("%w: %v", ErrDestination, err)
	}

	content, err := render.RenderConfig(render.Config{RootImport: s.settings.Package})
	if err != nil {
		return fmt.Errorf("failed to render config file: %w", err)
	}
	path := s.paths.ConfigFile()
	written, err := s.emitter.EmitOnce(path, content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestination, err)
	}
	if written {
		logger.With(logger.Fields{}).WithPath(path).Info(ctx, "Config file written")
	}

	if s.mirror != nil {
		if _, err := s.mirror.PublishOnce(ctx, path, content); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to mirror config file")
		}
	}
	return nil
}

// runJob processes one identifier end to end. It never panics the pool and
// reports every failure through the outcome.
func (s *GenerateService) runJob(ctx context.Context, job domain.GenerationJob) domain.GenerationOutcome {
	outcome := domain.GenerationOutcome{ID: job.ID}
	entry := logger.With(logger.Fields{}).WithProblem(job.ID)

	started := time.Now()
	page, err := s.source.Fetch(ctx, job.ID)
	s.recorder.ObserveFetchDuration(time.Since(started), err == nil)
	if err != nil {
		entry.WithDuration(time.Since(started)).Debug(ctx, "Fetch failed: %v", err)
		page = ""
		outcome.Err = err
	}

	outcome.Class = s.source.Classify(page)
	s.recorder.IncPage(string(outcome.Class))
	switch outcome.Class {
	case domain.PageEmpty:
		entry.WithStatus("empty").Info(ctx, "Webpage for problem %d is empty", job.ID)
		s.recorder.IncEmit(outcome.Status())
		return outcome
	case domain.PageInaccessible:
		entry.WithStatus("inaccessible").Info(ctx, "Problem %d is not accessible", job.ID)
		s.recorder.IncEmit(outcome.Status())
		return outcome
	}

	doc, ok := s.source.ExtractProblem(page)
	if !ok {
		entry.Warn(ctx, "No problem description found for problem %d", job.ID)
		doc = ""
	}

	bucket := layout.BucketFor(job.ID, job.Settings.BucketWidth, job.Settings.SubpackagePrefix)
	content, err := render.RenderStub(render.Stub{
		ID:         job.ID,
		ClassName:  layout.ClassName(job.Settings.ClassPrefix, job.ID),
		Bucket:     bucket,
		RootImport: job.Settings.Package,
		Heading:    s.source.Heading(job.ID),
		Doc:        doc,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("failed to render problem %d: %w", job.ID, err)
		entry.Error(ctx, "%v", outcome.Err)
		s.recorder.IncEmit(outcome.Status())
		return outcome
	}

	outcome.Path = s.paths.StubFile(job.ID)
	entry = entry.WithPath(outcome.Path).WithField(logger.FieldBucket, bucket)
	written, err := s.emitter.Emit(outcome.Path, content, job.Overwrite)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to write problem %d: %w", job.ID, err)
		entry.Error(ctx, "%v", outcome.Err)
		s.recorder.IncEmit(outcome.Status())
		return outcome
	}
	outcome.Written = written
	outcome.Continue = true

	if written && s.mirror != nil {
		if url, err := s.mirror.Publish(ctx, outcome.Path, content); err != nil {
			entry.Warn(ctx, "Failed to mirror problem %d: %v", job.ID, err)
		} else {
			entry.WithField("url", url).Debug(ctx, "Mirrored problem %d", job.ID)
		}
	}

	entry.WithStatus(outcome.Status()).Debug(ctx, "Problem %d done", job.ID)
	s.recorder.IncEmit(outcome.Status())
	return outcome
}

type poolTask struct {
	job     domain.GenerationJob
	results chan<- domain.GenerationOutcome
}

// workerPool is a fixed set of goroutines shared by every batch of a run.
type workerPool struct {
	tasks chan poolTask
	wg    sync.WaitGroup
	svc   *GenerateService
}

func (s *GenerateService) startPool(ctx context.Context) *workerPool {
	workers := max(s.settings.Workers, 1)
	p := &workerPool{
		tasks: make(chan poolTask, max(s.settings.BatchSize, 1)),
		svc:   s,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				t.results <- p.svc.runJob(ctx, t.job)
			}
		}()
	}
	return p
}

// runBatch submits identifiers from..to and blocks until every job reported.
// Outcomes are returned in identifier order.
func (p *workerPool) runBatch(settings domain.Settings, from, to int) []domain.GenerationOutcome {
	n := to - from + 1
	results := make(chan domain.GenerationOutcome, n)
	for id := from; id <= to; id++ {
		p.tasks <- poolTask{
			job:     domain.GenerationJob{ID: id, Settings: settings, Overwrite: settings.Overwrite},
			results: results,
		}
	}

	outcomes := make([]domain.GenerationOutcome, 0, n)
	for i := 0; i < n; i++ {
		outcomes = append(outcomes, <-results)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].ID < outcomes[j].ID })
	return outcomes
}

func (p *workerPool) stop() {
	close(p.tasks)
	p.wg.Wait()
}
