package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry carries per-event fields that should not live on the context.
// Example: logger.With(logger.Fields{"duration_ms": 1234}).Info(ctx, "Batch done")
type Entry struct {
	logger *Logger
	fields Fields
}

// With creates a new Entry with the given fields.
func With(fields Fields) *Entry {
	return &Entry{
		logger: getDefaultLogger(),
		fields: fields,
	}
}

// With returns a copy of e extended by fields.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{
		logger: e.logger,
		fields: merged,
	}
}

// WithField adds a single field to the Entry.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

// WithProblem adds the problem_id field.
func (e *Entry) WithProblem(id int) *Entry {
	return e.WithField(FieldProblemID, id)
}

// WithBatch adds the batch_from and batch_to fields.
func (e *Entry) WithBatch(from, to int) *Entry {
	return e.With(Fields{FieldBatchFrom: from, FieldBatchTo: to})
}

// WithPath adds the path field.
func (e *Entry) WithPath(path string) *Entry {
	return e.WithField(FieldPath, path)
}

// WithDuration adds a duration_ms field measured from d.
func (e *Entry) WithDuration(d time.Duration) *Entry {
	return e.WithField(FieldDurationMs, d.Milliseconds())
}

// WithCount adds a count field to the Entry.
func (e *Entry) WithCount(count int) *Entry {
	return e.WithField(FieldCount, count)
}

// WithStatus adds a status field to the Entry.
func (e *Entry) WithStatus(status string) *Entry {
	return e.WithField(FieldStatus, status)
}

// WithError adds the error field to the Entry.
func (e *Entry) WithError(err error) *Entry {
	return e.WithField(logrus.ErrorKey, err)
}

// getLogger prefers the context logger and falls back to the entry's own.
func (e *Entry) getLogger(ctx context.Context) *Logger {
	if ctx != nil {
		return FromContext(ctx)
	}
	return e.logger
}

// Debug logs at Debug level.
func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Debugf(format, args...)
}

// Info logs at Info level.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Infof(format, args...)
}

// Warn logs at Warn level.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Warnf(format, args...)
}

// Error logs at Error level.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.getLogger(ctx).WithFields(e.fields).Errorf(format, args...)
}
