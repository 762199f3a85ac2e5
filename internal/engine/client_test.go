package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorSuccessCodes(t *testing.T) {
	for _, code := range []int{200, 201, 204, 304} {
		assert.NoError(t, mapError("container", "x", code, nil, "GET", "/x"))
	}
}

func TestMapErrorContainerNotFound(t *testing.T) {
	err := mapError("container", "abc123", 404, nil, "GET", "/containers/abc123/json")
	var nf *ContainerNotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Equal(t, "abc123", nf.ContainerID)
}

func TestMapErrorImageNotFound(t *testing.T) {
	err := mapError("image", "python:3.99", 404, nil, "POST", "/images/create")
	var nf *ImageNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestMapErrorArchiveNotFound(t *testing.T) {
	err := mapError("archive", "/missing", 404, nil, "GET", "/containers/x/archive")
	var nf *FileNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestMapErrorContainerNotRunning(t *testing.T) {
	err := mapError("container", "abc", 409, nil, "POST", "/containers/abc/exec")
	var nr *ContainerNotRunningError
	assert.ErrorAs(t, err, &nr)
}

func TestMapErrorPodmanExecCreateQuirk(t *testing.T) {
	body := []byte(`{"message":"container state improper"}`)
	err := mapError("exec-create", "abc", 500, body, "POST", "/containers/abc/exec")
	var nr *ContainerNotRunningError
	assert.ErrorAs(t, err, &nr)
}

func TestMapErrorFallsBackToStatusError(t *testing.T) {
	err := mapError("container", "abc", 500, []byte("boom"), "POST", "/containers/abc/start")
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.StatusCode)
}
