package podbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/distribution/reference"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	digest "github.com/opencontainers/go-digest"
)

// ParseMemLimit parses a human memory limit string ("256m", "1g", "512k",
// bare bytes) into a byte count, using the same suffix table the Docker
// CLI itself accepts. An empty or malformed value is a hard error: there
// is no sensible "zero" default for a memory limit.
func ParseMemLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("podbox: empty memory limit")
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("podbox: invalid memory limit %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("podbox: memory limit must be positive, got %q", s)
	}
	return n, nil
}

// FormatBytes renders a byte count the way `podbox info`/`podbox list`
// display memory usage.
func FormatBytes(n int64) string {
	return units.HumanSizeWithPrecision(float64(n), 3)
}

// parseCPUPercent turns a CPU-cores value (1.5 = one and a half cores)
// into NanoCPUs, the unit the engine's HostConfig expects.
func parseCPUPercent(cores float64) int64 {
	return int64(cores * 1e9)
}

// normalizeImageRef validates and normalizes an image reference
// ("python" -> "docker.io/library/python:latest") the way the Docker CLI
// itself would before handing it to the engine.
func normalizeImageRef(ref string) (string, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", fmt.Errorf("podbox: invalid image reference %q: %w", ref, err)
	}
	return reference.TagNameOnly(named).String(), nil
}

// splitRepoTag splits "repo:tag" into its two parts the way Snapshot
// needs to for the commit endpoint's repo/tag query parameters; falls
// back to ("repo", "latest") when there is no explicit tag.
func splitRepoTag(ref string) (repo, tag string) {
	if named, err := reference.ParseNormalizedNamed(ref); err == nil {
		tagged := reference.TagNameOnly(named)
		if t, ok := tagged.(reference.Tagged); ok {
			return reference.FamiliarName(tagged), t.Tag()
		}
		return reference.FamiliarName(tagged), "latest"
	}
	if idx := strings.LastIndex(ref, ":"); idx > 0 && !strings.Contains(ref[idx:], "/") {
		return ref[:idx], ref[idx+1:]
	}
	return ref, "latest"
}

// normalizeImageID validates the id an engine returns from a commit as a
// content digest when it looks like one (Podman), and passes through the
// bare hex id unchanged otherwise (Docker).
func normalizeImageID(id string) string {
	if d, err := digest.Parse(id); err == nil {
		return d.String()
	}
	return id
}

// buildExposedPorts/buildPortBindings turn a simple "containerPort/proto"
// list into the nat.PortSet/nat.PortMap shapes the engine's
// container-create and container-inspect payloads use. Every port is
// bound to 127.0.0.1 on a host port the engine picks; a specific host
// port cannot be requested.
func buildExposedPorts(ports []string) (nat.PortSet, error) {
	if len(ports) == 0 {
		return nil, nil
	}
	set := nat.PortSet{}
	for _, p := range ports {
		port, err := nat.NewPort(protoOf(p), portNumberOf(p))
		if err != nil {
			return nil, fmt.Errorf("podbox: invalid port spec %q: %w", p, err)
		}
		set[port] = struct{}{}
	}
	return set, nil
}

func buildPortBindings(ports []string) (nat.PortMap, error) {
	if len(ports) == 0 {
		return nil, nil
	}
	bindings := nat.PortMap{}
	for _, p := range ports {
		port, err := nat.NewPort(protoOf(p), portNumberOf(p))
		if err != nil {
			return nil, fmt.Errorf("podbox: invalid port spec %q: %w", p, err)
		}
		bindings[port] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}}
	}
	return bindings, nil
}

func protoOf(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return "tcp"
}

func portNumberOf(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[:idx]
	}
	return p
}

// parsePortBindings reparses the engine's inspected HostConfig.PortBindings
// into the same nat.PortMap shape, used by Resume to reconstruct what
// was bound without the caller needing to remember it.
func parsePortBindings(raw map[string][]portBindingPayload) nat.PortMap {
	bindings := nat.PortMap{}
	for k, v := range raw {
		var hb []nat.PortBinding
		for _, b := range v {
			hb = append(hb, nat.PortBinding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
		bindings[nat.Port(k)] = hb
	}
	return bindings
}

// computeCPUPercent reproduces the original's two-sample CPU delta
// calculation: (containerDelta / systemDelta) * onlineCPUs * 100.
func computeCPUPercent(cpuDelta, systemDelta uint64, onlineCPUs int) float64 {
	if systemDelta == 0 || onlineCPUs == 0 {
		return 0
	}
	return (float64(cpuDelta) / float64(systemDelta)) * float64(onlineCPUs) * 100.0
}

// parseEngineTimestamp tolerates both a trailing "Z" and the engine's
// sometimes-sub-microsecond fractional seconds; RFC3339Nano already
// accepts both without preprocessing.
func parseEngineTimestamp(s string) time.Time {
	if s == "" || strings.HasPrefix(s, "0001-01-01") {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
