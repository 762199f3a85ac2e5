package podbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// State is the container handle's lifecycle state.
type State string

const (
	StateCreating State = "creating"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateError    State = "error"
)

// Container is a handle to one sandbox container: its own exec/session
// engine plus the lifecycle operations that create, stop, and remove it.
// A Container is safe for concurrent use by multiple goroutines.
type Container struct {
	mu sync.Mutex

	id      string
	name    string
	image   string
	socket  string
	client  *engine.Client
	state   State
	project string
	persist bool
	data    string
	labels  map[string]string
	log     *instanceLog

	memBytes     int64
	nanoCPUs     int64
	exposedPorts nat.PortSet
	portBindings nat.PortMap

	closed atomic.Bool

	sessions  []*Session
	processes []*Process
	streams   []*ExecStream
}

// generateName produces the "pd-XXXXXXXX" container name convention:
// an 8-hex-character random suffix, matching the engine's own
// auto-naming length without colliding with it.
func generateName() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return "pd-" + hex.EncodeToString(buf)
}

func buildLabels(o CreateOptions, name string) map[string]string {
	labels := map[string]string{
		labelManaged:   "true",
		labelInstance:  name,
		labelCreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if o.Project != "" {
		labels[labelProject] = o.Project
	}
	if o.Persist {
		labels[labelPersist] = "true"
	}
	if o.DataPath != "" {
		labels[labelDataPath] = o.DataPath
	}
	for k, v := range o.Labels {
		labels[k] = v
	}
	return labels
}

func buildBinds(volumes map[string]string) []string {
	if len(volumes) == 0 {
		return nil
	}
	var binds []string
	for host, container := range volumes {
		binds = append(binds, fmt.Sprintf("%s:%s", host, container))
	}
	return binds
}

// Create provisions and starts a new sandbox container.
func Create(ctx context.Context, opts ...CreateOption) (*Container, error) {
	o := defaultCreateOptions()
	for _, opt := range opts {
		opt(&o)
	}

	socket, err := engine.DetectSocket(o.Socket)
	if err != nil {
		return nil, &EngineUnavailableError{Candidates: []string{o.Socket}}
	}

	image, err := normalizeImageRef(o.Image)
	if err != nil {
		return nil, err
	}

	memBytes, err := ParseMemLimit(o.MemLimit)
	if err != nil {
		return nil, err
	}

	name := o.Name
	if name == "" {
		name = generateName()
	}

	exposedPorts, err := buildExposedPorts(o.Ports)
	if err != nil {
		return nil, err
	}
	portBindings, err := buildPortBindings(o.Ports)
	if err != nil {
		return nil, err
	}

	client := engine.NewClient(socket)
	labels := buildLabels(o, name)

	spec := map[string]any{
		"Image":        image,
		"Cmd":          []string{"sleep", "infinity"},
		"Env":          o.Env,
		"WorkingDir":   o.WorkDir,
		"Labels":       labels,
		"ExposedPorts": exposedPorts,
		"HostConfig": map[string]any{
			"Memory":       memBytes,
			"NanoCpus":     parseCPUPercent(o.CPUCores),
			"PortBindings": portBindings,
			"Binds":        buildBinds(o.Volumes),
		},
	}

	result, err := client.CreateContainer(ctx, name, spec)
	if err != nil {
		return nil, translate(err)
	}

	c := &Container{
		id:           result.ID,
		name:         name,
		image:        image,
		socket:       socket,
		client:       client,
		state:        StateCreating,
		project:      o.Project,
		persist:      o.Persist,
		data:         o.DataPath,
		labels:       labels,
		log:          newInstanceLog(o.LogWriter),
		memBytes:     memBytes,
		nanoCPUs:     parseCPUPercent(o.CPUCores),
		exposedPorts: exposedPorts,
		portBindings: portBindings,
	}

	if err := client.StartContainer(ctx, result.ID); err != nil {
		c.state = StateError
		return nil, translate(err)
	}
	c.state = StateRunning

	log.Debug().Str("id", c.id).Str("name", c.name).Str("image", c.image).Msg("podbox: container created")
	return c, nil
}

func (c *Container) ID() string      { return c.id }
func (c *Container) Name() string    { return c.name }
func (c *Container) Image() string   { return c.image }
func (c *Container) Project() string { return c.project }
func (c *Container) Persist() bool   { return c.persist }
func (c *Container) DataPath() string { return c.data }

func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Container) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Reboot restarts the container in place (fresh=false) or removes and
// recreates it (fresh=true) with the same image, labels, memory and CPU
// limits, and port bindings; the environment, working directory, and
// volume binds given to Create are not carried over to the new container.
// A fresh reboot loses any filesystem changes; an in-place restart does
// not.
func (c *Container) Reboot(ctx context.Context, fresh bool) error {
	if fresh {
		if err := c.client.RemoveContainer(ctx, c.id, true, true); err != nil {
			return translate(err)
		}
		spec := map[string]any{
			"Image":        c.image,
			"Cmd":          []string{"sleep", "infinity"},
			"Labels":       c.labels,
			"ExposedPorts": c.exposedPorts,
			"HostConfig": map[string]any{
				"Memory":       c.memBytes,
				"NanoCpus":     c.nanoCPUs,
				"PortBindings": c.portBindings,
			},
		}
		result, err := c.client.CreateContainer(ctx, c.name, spec)
		if err != nil {
			return translate(err)
		}
		c.id = result.ID
		if err := c.client.StartContainer(ctx, c.id); err != nil {
			c.setState(StateError)
			return translate(err)
		}
		c.setState(StateRunning)
		return nil
	}

	if err := c.client.RestartContainer(ctx, c.id, 5); err != nil {
		return translate(err)
	}
	c.setState(StateRunning)
	return nil
}

// Snapshot commits the container's current filesystem as a new image and
// returns its id. repo/tag default to the container's own image
// reference when empty.
func (c *Container) Snapshot(ctx context.Context, repo, tag string) (string, error) {
	if repo == "" {
		repo, _ = splitRepoTag(c.image)
	}
	if tag == "" {
		_, tag = splitRepoTag(c.image)
	}
	result, err := c.client.CommitContainer(ctx, c.id, repo, tag)
	if err != nil {
		return "", translate(err)
	}
	return normalizeImageID(result.ID), nil
}

// registerSession/registerProcess/registerStream track child resources
// so Shutdown can tear them down transactionally. A resource removes
// itself from the registry when it closes on its own.
func (c *Container) registerSession(s *Session) {
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()
}

func (c *Container) unregisterSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.sessions {
		if existing == s {
			c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
			return
		}
	}
}

func (c *Container) registerProcess(p *Process) {
	c.mu.Lock()
	c.processes = append(c.processes, p)
	c.mu.Unlock()
}

func (c *Container) unregisterProcess(p *Process) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.processes {
		if existing == p {
			c.processes = append(c.processes[:i], c.processes[i+1:]...)
			return
		}
	}
}

func (c *Container) registerStream(s *ExecStream) {
	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()
}

func (c *Container) unregisterStream(s *ExecStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.streams {
		if existing == s {
			c.streams = append(c.streams[:i], c.streams[i+1:]...)
			return
		}
	}
}

// ShutdownOptions controls how Shutdown tears a container down.
type ShutdownOptions struct {
	// Persist, when true, only stops the container: it is left on the
	// engine for a later Resume. Takes precedence over Force.
	Persist bool
	// Force removes the container immediately without a graceful stop.
	Force bool
	// Timeout is the graceful-stop grace period in seconds.
	Timeout int
}

// Shutdown tears down a container and every child session/process/stream
// it owns. It is idempotent: calling it twice, or calling it on a
// container the engine has already removed out from under this handle,
// is not an error.
func (c *Container) Shutdown(ctx context.Context, opts ShutdownOptions) error {
	if c.closed.Swap(true) {
		return nil
	}

	c.mu.Lock()
	sessions := append([]*Session(nil), c.sessions...)
	processes := append([]*Process(nil), c.processes...)
	streams := append([]*ExecStream(nil), c.streams...)
	c.sessions = nil
	c.processes = nil
	c.streams = nil
	c.mu.Unlock()

	for _, s := range sessions {
		s.closeInternal()
	}
	for _, p := range processes {
		p.closeInternal()
	}
	for _, s := range streams {
		s.closeInternal()
	}

	c.setState(StateStopping)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5
	}

	if opts.Persist {
		err := ignoreNotFoundOrNotRunning(translate(c.client.StopContainer(ctx, c.id, timeout)))
		c.setState(StateStopped)
		return err
	}

	if opts.Force {
		err := ignoreNotFoundOrNotRunning(translate(c.client.RemoveContainer(ctx, c.id, true, true)))
		c.setState(StateStopped)
		return err
	}

	if err := ignoreNotFoundOrNotRunning(translate(c.client.StopContainer(ctx, c.id, timeout))); err != nil {
		c.setState(StateError)
		return err
	}
	err := ignoreNotFoundOrNotRunning(translate(c.client.RemoveContainer(ctx, c.id, false, true)))
	c.setState(StateStopped)
	return err
}
