package podbox

import (
	"context"
	"io"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// BuildImage builds an image from a tar build context (a directory
// containing a Dockerfile, tarred up by the caller) and tags it, the way
// `podbox image build` does for turning a sandbox's Dockerfile into a
// reusable image before Create pulls it.
func BuildImage(ctx context.Context, socket string, tarContext []byte, tag string) ([]byte, error) {
	path, err := engine.DetectSocket(socket)
	if err != nil {
		return nil, &EngineUnavailableError{Candidates: []string{socket}}
	}
	client := engine.NewClient(path)
	body, err := client.BuildImage(ctx, tarContext, tag)
	if err != nil {
		return nil, translate(err)
	}
	return body, nil
}

// SaveImage streams ref as a tar archive the way `docker save` does,
// letting a Snapshot'd image be exported for transfer to another engine.
func SaveImage(ctx context.Context, socket, ref string) (io.ReadCloser, error) {
	path, err := engine.DetectSocket(socket)
	if err != nil {
		return nil, &EngineUnavailableError{Candidates: []string{socket}}
	}
	client := engine.NewClient(path)
	reader, err := client.SaveImage(ctx, ref)
	if err != nil {
		return nil, translate(err)
	}
	return reader, nil
}

// LoadImage loads a tar archive previously produced by SaveImage (or
// `docker save`) into the engine's image store.
func LoadImage(ctx context.Context, socket string, tarData []byte) error {
	path, err := engine.DetectSocket(socket)
	if err != nil {
		return &EngineUnavailableError{Candidates: []string{socket}}
	}
	client := engine.NewClient(path)
	if err := client.LoadImage(ctx, tarData); err != nil {
		return translate(err)
	}
	return nil
}
