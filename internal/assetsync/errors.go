package assetsync

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrIntegrityCheckFailed means a staged download did not match its
	// integrity descriptor.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")
	// ErrTransferFailed means the download or the swap into place failed.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrUpToDate is returned by Update when nothing newer is available.
	ErrUpToDate = errors.New("already up to date")
)

// Error describes a failed synchronizer operation.
type Error struct {
	Op  string // install, update, install-package
	Ref string // version or package reference
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func transferError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransferFailed, fmt.Sprintf(format, args...))
}

func wrapTransfer(err error, what string) error {
	if errors.Is(err, ErrTransferFailed) || errors.Is(err, ErrIntegrityCheckFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrTransferFailed, what, err)
}
