package main

import (
	"errors"
	"fmt"
	"syscall"
)

type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindTransfer
	KindRemoteSize
	KindPublicAccess
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransfer:
		return "transfer"
	case KindRemoteSize:
		return "remote size"
	case KindPublicAccess:
		return "public access"
	default:
		return "unknown"
	}
}

var (
	ErrObjectNotFound          = errors.New("object not found")
	ErrInvalidObjectSize       = errors.New("invalid object size")
	ErrPublicAccessUnavailable = errors.New("public access is not available for this account")
)

// SyncError is returned by the tree operations. Every SyncError aborts the
// operation that produced it.
type SyncError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *SyncError) Error() string {
	switch e.Kind {
	case KindConfiguration:
		return fmt.Sprintf("Not a valid directory: %s", e.Path)
	case KindRemoteSize:
		return fmt.Sprintf("Invalid size for file: %s", e.Path)
	case KindTransfer:
		var errno syscall.Errno
		if errors.As(e.Err, &errno) {
			return fmt.Sprintf("Problem transferring file '%s': %s (errno %d)", e.Path, errno.Error(), int(errno))
		}
		return fmt.Sprintf("Problem transferring file '%s': %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Path, e.Err)
	}
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func newSyncError(kind ErrorKind, path string, err error) *SyncError {
	return &SyncError{Kind: kind, Path: path, Err: err}
}

// IsKind reports whether any error in err's chain is a SyncError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind == kind
	}
	return false
}
