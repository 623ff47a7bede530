// Package errors defines the domain-level errors used throughout dmcp.
// Every Discovery and Mutation Engine operation returns one of these (wrapped with context
// using fmt.Errorf and %w) instead of aborting the process. Only the command layer
// turns them into printed messages and exit codes.
//
// The errors form a small taxonomy: each specific error wraps one of the kind errors
// (ErrNotFound, ErrInvalidInput, ErrIO, ErrSerialization, ErrExternalProcess, ErrNetwork)
// so callers can match either the specific error or its kind using errors.Is.
//
// NOTE: When adding a new error here, consider how it is handled by mapError (internal/daemon)
// which converts errors into HTTP status codes for the local API.
package errors

import (
	"errors"
)

// Kinds.
var (
	// ErrNotFound indicates that a server, configuration key or source is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates an empty or malformed argument, or a malformed manifest/descriptor shape.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIO indicates a failure reading, writing, creating or removing files and directories.
	ErrIO = errors.New("i/o failure")

	// ErrSerialization indicates malformed JSON on read, or a value which cannot be encoded on write.
	ErrSerialization = errors.New("serialization failure")

	// ErrExternalProcess indicates a non-zero exit (or failure to start) of a child process,
	// such as the elevation broker, an elevated copy/delete, or the source clone.
	ErrExternalProcess = errors.New("external process failure")

	// ErrNetwork indicates a connection failure, timeout or non-2xx response from a registry or manifest URL.
	ErrNetwork = errors.New("network failure")
)

// Specific errors.
var (
	// ErrServerNotFound indicates that no installed server (or registry entry) has the requested ID.
	ErrServerNotFound = kind("server not found", ErrNotFound)

	// ErrConfigKeyNotFound indicates that the server exists, but its configuration has no such key.
	ErrConfigKeyNotFound = kind("config key not found", ErrNotFound)

	// ErrSourceNotFound indicates that a registry source URL is not present in the requested scope.
	ErrSourceNotFound = kind("source not found", ErrNotFound)

	// ErrNoSources indicates that no registry sources are configured in any scope.
	ErrNoSources = kind("no registry sources configured", ErrNotFound)

	// ErrSourceExists indicates that a registry source URL is already present in the requested scope.
	ErrSourceExists = kind("source already exists", ErrInvalidInput)

	// ErrUnsupportedTransport indicates a transport type which cannot be used for the requested operation.
	ErrUnsupportedTransport = kind("unsupported transport", ErrInvalidInput)

	// ErrFetchFailed indicates that the external fetch (clone) of a server's sources failed.
	// It is kept distinct from ErrCopyFailed which covers copying the staged tree locally.
	ErrFetchFailed = kind("source fetch failed", ErrExternalProcess)

	// ErrCopyFailed indicates that copying staged server files into the install directory failed.
	ErrCopyFailed = kind("copy failed", ErrIO)
)

// kindError is a named error which also matches its kind.
type kindError struct {
	msg  string
	kind error
}

func kind(msg string, k error) error {
	return &kindError{msg: msg, kind: k}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}
