package podbox

import (
	"errors"
	"fmt"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// EngineUnavailableError means no engine socket could be found at any of
// the candidate paths.
type EngineUnavailableError struct{ Candidates []string }

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("podbox: no engine socket found, tried %v", e.Candidates)
}

// SocketConnectionError wraps a failure to dial the engine socket.
type SocketConnectionError struct {
	Path string
	Err  error
}

func (e *SocketConnectionError) Error() string {
	return fmt.Sprintf("podbox: cannot connect to engine at %s: %v", e.Path, e.Err)
}
func (e *SocketConnectionError) Unwrap() error { return e.Err }

// SocketCommunicationError wraps a failure mid-request: a malformed
// response, a reset connection, a truncated body.
type SocketCommunicationError struct{ Err error }

func (e *SocketCommunicationError) Error() string {
	return fmt.Sprintf("podbox: engine communication error: %v", e.Err)
}
func (e *SocketCommunicationError) Unwrap() error { return e.Err }

// ContainerNotFoundError means the engine has no container by this id or
// name.
type ContainerNotFoundError struct{ ContainerID string }

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("podbox: container not found: %s", e.ContainerID)
}

// ContainerNotRunningError means the container exists but is stopped,
// paused, or otherwise not in a runnable state.
type ContainerNotRunningError struct{ ContainerID string }

func (e *ContainerNotRunningError) Error() string {
	return fmt.Sprintf("podbox: container not running: %s", e.ContainerID)
}

// ImageNotFoundError means the referenced image does not exist on the
// engine.
type ImageNotFoundError struct{ Image string }

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("podbox: image not found: %s", e.Image)
}

// SessionClosedError means an operation was attempted on a Session whose
// underlying exec has already exited or been closed.
type SessionClosedError struct{}

func (e *SessionClosedError) Error() string { return "podbox: session is closed" }

// FileNotFoundError means a path inside the container does not exist.
type FileNotFoundError struct{ Path string }

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("podbox: file not found: %s", e.Path)
}

// ErrSendInProgress is returned by Session.SendAndWait when a previous
// call on the same session has not yet completed. Unlike the other
// errors here, this is a programming error, not a recoverable engine
// condition: sessions serialize one in-flight command at a time.
var ErrSendInProgress = errors.New("podbox: a command is already in flight on this session")

// translate maps an internal/engine error onto its podbox equivalent so
// callers never need to import the internal package to use errors.As.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var notFound *engine.ContainerNotFoundError
	if errors.As(err, &notFound) {
		return &ContainerNotFoundError{ContainerID: notFound.ContainerID}
	}
	var notRunning *engine.ContainerNotRunningError
	if errors.As(err, &notRunning) {
		return &ContainerNotRunningError{ContainerID: notRunning.ContainerID}
	}
	var imgNotFound *engine.ImageNotFoundError
	if errors.As(err, &imgNotFound) {
		return &ImageNotFoundError{Image: imgNotFound.Image}
	}
	var fileNotFound *engine.FileNotFoundError
	if errors.As(err, &fileNotFound) {
		return &FileNotFoundError{Path: fileNotFound.Path}
	}
	var connErr *engine.ConnectionError
	if errors.As(err, &connErr) {
		return &SocketConnectionError{Path: connErr.Path, Err: connErr.Err}
	}
	var commErr *engine.CommunicationError
	if errors.As(err, &commErr) {
		return &SocketCommunicationError{Err: commErr}
	}
	return err
}

// ignoreNotFoundOrNotRunning swallows the two conditions that mean
// "already in the state we wanted", the only place this package
// systematically suppresses errors outside of callback dispatch.
func ignoreNotFoundOrNotRunning(err error) error {
	if err == nil {
		return nil
	}
	var notFound *ContainerNotFoundError
	var notRunning *ContainerNotRunningError
	if errors.As(err, &notFound) || errors.As(err, &notRunning) {
		return nil
	}
	return err
}
