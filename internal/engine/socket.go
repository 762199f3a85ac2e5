package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// DetectSocket resolves the engine socket path using the precedence
// order: an explicit override, the PODBOX_SOCKET environment variable,
// the rootless Podman socket under XDG_RUNTIME_DIR, the system Podman
// socket, then the Docker socket. The first candidate that exists on
// disk wins; if none exist, an error lists every path that was tried.
func DetectSocket(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if v := os.Getenv("PODBOX_SOCKET"); v != "" {
		return v, nil
	}

	var candidates []string
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "podman", "podman.sock"))
	}
	candidates = append(candidates, "/run/podman/podman.sock", "/var/run/docker.sock")

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && (info.Mode()&os.ModeSocket) != 0 {
			return c, nil
		}
	}
	return "", fmt.Errorf("engine: no socket found, tried %v", candidates)
}
