// Package enums provides type-safe enumeration types shared by the scheduler, the store and the api.
//
// The enum types are defined as unexported integer types in this file, and the go:generate directives
// invoke the go-pkgz/enum generator to create the exported struct types with String, Parse, Must,
// text marshaling and sql Scan/Value methods in separate *_enum.go files.
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/enums
//
// The unexported type definitions below are only used by the generator.
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type jobStatus -lower
//go:generate go run github.com/go-pkgz/enum@latest -type limitMode -lower
//go:generate go run github.com/go-pkgz/enum@latest -type uploadStatus -lower
//go:generate go run github.com/go-pkgz/enum@latest -type batchMode -lower
//go:generate go run github.com/go-pkgz/enum@latest -type execMode -lower
//go:generate go run github.com/go-pkgz/enum@latest -type phase -lower

// jobStatus is the lifecycle state of a crawl job
type jobStatus int

const (
	jobStatusStarting jobStatus = iota
	jobStatusRunning
	jobStatusUploading
	jobStatusCompleted
	jobStatusFailed
	jobStatusStopped
)

// limitMode defines how the item limit of a job is interpreted
type limitMode int

const (
	limitModeDefault limitMode = iota
	limitModeCustom
	limitModeAll
)

// uploadStatus is the state of a result file relative to the remote store
type uploadStatus int

const (
	uploadStatusLocal uploadStatus = iota
	uploadStatusUploading
	uploadStatusCloudOnly
	uploadStatusBoth
	uploadStatusFailed
)

// batchMode defines how members of a batch are started
type batchMode int

const (
	batchModeParallel batchMode = iota
	batchModeSequential
)

// execMode selects where a job process runs, in the scheduler itself or via the watcher queue
type execMode int

const (
	execModeLocal execMode = iota
	execModeQueue
)

// phase is the coarse crawler phase reported by progress lines
type phase int

const (
	phaseInitializing phase = iota
	phaseLoading
	phaseScraping
	phaseSaving
	phaseUploading
	phaseFinished
)

// IsTerminal reports whether the status can't change anymore
func (e JobStatus) IsTerminal() bool {
	return e == JobStatusCompleted || e == JobStatusFailed || e == JobStatusStopped
}
