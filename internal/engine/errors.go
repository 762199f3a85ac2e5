// Package engine implements the hand-rolled HTTP-over-Unix-socket client
// that speaks to a Docker- or Podman-compatible container engine. Outside
// of tests, only this module's root podbox package imports it.
package engine

import "fmt"

// ConnectionError wraps a failure to reach the engine socket at all:
// missing file, permission denied, or the dial itself failing.
type ConnectionError struct {
	Path string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("engine: cannot connect to %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommunicationError wraps a failure while a request/response was already
// in flight: a malformed status line, a truncated body, a reset connection.
type CommunicationError struct {
	Detail string
	Err    error
}

func (e *CommunicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine: communication error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("engine: communication error: %s", e.Detail)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// StatusError carries a raw HTTP status code and body from the engine,
// before the caller maps it onto a domain-specific error via the table in
// client.go. Most callers never see this type directly.
type StatusError struct {
	StatusCode int
	Body       []byte
	Method     string
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 200))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ContainerNotFoundError means the engine has no container with this id.
type ContainerNotFoundError struct{ ContainerID string }

func (e *ContainerNotFoundError) Error() string {
	return fmt.Sprintf("engine: container not found: %s", e.ContainerID)
}

// ContainerNotRunningError means the container exists but is not in a
// state where the requested operation is valid (stopped, paused, or the
// Podman "container state improper" exec-create quirk).
type ContainerNotRunningError struct{ ContainerID string }

func (e *ContainerNotRunningError) Error() string {
	return fmt.Sprintf("engine: container not running: %s", e.ContainerID)
}

// ImageNotFoundError means the engine has no image by this reference and
// was asked not to (or could not) pull it.
type ImageNotFoundError struct{ Image string }

func (e *ImageNotFoundError) Error() string {
	return fmt.Sprintf("engine: image not found: %s", e.Image)
}

// FileNotFoundError means a path inside the container does not exist,
// surfaced from an archive (tar) endpoint's 404.
type FileNotFoundError struct{ Path string }

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("engine: path not found in container: %s", e.Path)
}
