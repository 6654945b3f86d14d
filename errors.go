package osrevk

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a backend failure.
type ErrorKind int

const (
	LibraryLoadError ErrorKind = iota + 1
	CapabilityUnsupportedError
	DeviceSelectionError
	ResourceCreationError
	SynchronizationError
)

func (k ErrorKind) String() string {
	switch k {
	case LibraryLoadError:
		return "library load"
	case CapabilityUnsupportedError:
		return "capability unsupported"
	case DeviceSelectionError:
		return "device selection"
	case ResourceCreationError:
		return "resource creation"
	case SynchronizationError:
		return "synchronization"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every bring-up and frame stage. The Stage names the
// step that failed, e.g. "swapchain" or "pipeline".
type Error struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vlkbackend: %s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("vlkbackend: %s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels, so errors.Is(err, ErrDeviceSelection) holds
// for any device selection failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Stage != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrLibraryLoad           = &Error{Kind: LibraryLoadError}
	ErrCapabilityUnsupported = &Error{Kind: CapabilityUnsupportedError}
	ErrDeviceSelection       = &Error{Kind: DeviceSelectionError}
	ErrResourceCreation      = &Error{Kind: ResourceCreationError}
	ErrSynchronization       = &Error{Kind: SynchronizationError}

	// ErrNotInitialized is returned by frame calls on a backend that has
	// not been created or was destroyed.
	ErrNotInitialized = errors.New("vlkbackend: backend not initialized")
	// ErrFrameSequence is returned when pass and batch calls are not
	// properly nested.
	ErrFrameSequence = errors.New("vlkbackend: frame call out of sequence")
)

func stageError(kind ErrorKind, stage string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func stageErrorf(kind ErrorKind, stage, format string, args ...any) error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}
