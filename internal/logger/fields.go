package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context through a generation run.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID identifies one generation run (UUID)
	FieldRunID = "run_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the problem page source identifier
	FieldSource = "source"
)

// Entry-level fields, used for aggregation and alerting.
const (
	// FieldProblemID is the numeric problem identifier
	FieldProblemID = "problem_id"

	// FieldBatchFrom is the first identifier of a batch
	FieldBatchFrom = "batch_from"

	// FieldBatchTo is the last identifier of a batch
	FieldBatchTo = "batch_to"

	// FieldBucket is the subpackage a stub lands in
	FieldBucket = "bucket"

	// FieldPath is the file system path of an emitted file
	FieldPath = "path"

	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
