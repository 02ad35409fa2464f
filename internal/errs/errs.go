// Package errs defines common error variables used across the application.
package errs

import "errors"

var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrInvalidQueryParam indicates that a query parameter could not be parsed.
	ErrInvalidQueryParam = errors.New("invalid query parameter")
)

// Option errors.
var (
	// ErrInvalidQuality indicates that the quality selector is not one of the supported values.
	ErrInvalidQuality = errors.New("invalid quality")
	// ErrInvalidFormat indicates that the container format is not one of the supported values.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrExtraArgs indicates that the extra arguments string could not be split into words.
	ErrExtraArgs = errors.New("malformed extra arguments")
)

// Batch errors.
var (
	// ErrBatchActive indicates that a batch is already running.
	ErrBatchActive = errors.New("batch already active")
	// ErrEmptyBatch indicates that no usable URL was submitted.
	ErrEmptyBatch = errors.New("no urls submitted")
	// ErrDownloadRoot indicates that the download root directory could not be created.
	ErrDownloadRoot = errors.New("download root unavailable")
)

// Process errors.
var (
	// ErrSpawn indicates that the external process could not be started.
	ErrSpawn = errors.New("spawn process")
	// ErrProcessUsed indicates that a supervisor was started twice.
	ErrProcessUsed = errors.New("process supervisor already used")
	// ErrNotStarted indicates that a supervisor was waited on without a running process.
	ErrNotStarted = errors.New("process not started")
	// ErrTerminated indicates that a supervisor was terminated before it could start.
	ErrTerminated = errors.New("process terminated")
)

// Dependency errors.
var (
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)
