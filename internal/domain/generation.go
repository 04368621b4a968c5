package domain

// PageClass is the classification of a fetched problem page.
// Values include PageValid, PageEmpty, and PageInaccessible.
type PageClass string

const (
	PageValid        PageClass = "valid"
	PageEmpty        PageClass = "empty"
	PageInaccessible PageClass = "inaccessible"
)

// Settings is the immutable configuration snapshot shared by every job of a run.
// It is passed by value so no job can observe another job's mutation.
type Settings struct {
	// DestinationRoot is the directory that receives the config file and the bucket directories.
	DestinationRoot string
	// ClassPrefix prefixes every generated type name (Euler -> Euler001).
	ClassPrefix string
	// Package is the Go import path of the generated root package.
	Package string
	// SubpackagePrefix prefixes every bucket name (x -> x000_049).
	SubpackagePrefix string
	// Extension is the file extension of generated stubs, without the dot.
	Extension   string
	BatchSize   int
	Workers     int
	BucketWidth int
	Overwrite   bool
}

// GenerationJob is the unit of work submitted to the worker pool.
type GenerationJob struct {
	ID        int
	Settings  Settings
	Overwrite bool
}

// GenerationOutcome is produced once per job and consumed by the batch reduction.
type GenerationOutcome struct {
	ID       int
	Continue bool
	Class    PageClass
	// Written reports whether the stub file was (re)written; false when it already existed.
	Written bool
	Path    string
	// Err carries the cause of a non-continuing outcome, when there is one.
	Err error
}

// Status returns a short label for the outcome used in logs, metrics and the ledger.
func (o GenerationOutcome) Status() string {
	switch {
	case o.Class == PageEmpty:
		return "empty"
	case o.Class == PageInaccessible:
		return "inaccessible"
	case !o.Continue:
		return "failed"
	case o.Written:
		return "written"
	default:
		return "skipped"
	}
}
