package types

import (
	"errors"
	"fmt"
	"time"
)

// ConfigurationError signals an invalid model key, preset, or device
// request, or a required artifact with no provisioning fallback. It is
// always raised before any worker process is spawned.
type ConfigurationError struct{ msg string }

func (e ConfigurationError) Error() string { return e.msg }

// Configuration constructs a ConfigurationError.
func Configuration(format string, args ...any) error {
	return ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce ConfigurationError
	return errors.As(err, &ce)
}

// DownloadError signals a failure while auto-provisioning a missing
// artifact. It is surfaced to the caller and never retried.
type DownloadError struct {
	URL string
	Err error
}

func (e DownloadError) Error() string { return "download " + e.URL + ": " + e.Err.Error() }
func (e DownloadError) Unwrap() error { return e.Err }

// IsDownload reports whether err is a DownloadError.
func IsDownload(err error) bool {
	var de DownloadError
	return errors.As(err, &de)
}

// CrashError signals that the isolated worker terminated without posting
// any outcome (native crash, OOM kill, driver abort).
type CrashError struct{ ExitCode int }

func (e CrashError) Error() string {
	return fmt.Sprintf("mask worker crashed without posting a result (exit code %d)", e.ExitCode)
}

// IsCrash reports whether err is a CrashError.
func IsCrash(err error) bool {
	var ce CrashError
	return errors.As(err, &ce)
}

// TimeoutError signals that the worker exceeded its time budget and was
// forcibly terminated.
type TimeoutError struct{ Timeout time.Duration }

func (e TimeoutError) Error() string {
	return fmt.Sprintf("mask generation exceeded timeout (%s) and was terminated", e.Timeout)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te TimeoutError
	return errors.As(err, &te)
}

// InferenceError signals that the worker ran and explicitly failed. It
// carries the worker's textual failure description, never a live error
// value from the other process.
type InferenceError struct{ Detail string }

func (e InferenceError) Error() string { return "mask generation failed in worker: " + e.Detail }

// IsInference reports whether err is an InferenceError.
func IsInference(err error) bool {
	var ie InferenceError
	return errors.As(err, &ie)
}

// StorageError signals a container write or read failure.
type StorageError struct {
	Op   string // "write", "read", "list"
	Path string
	Err  error
}

func (e StorageError) Error() string { return e.Op + " " + e.Path + ": " + e.Err.Error() }
func (e StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se StorageError
	return errors.As(err, &se)
}
