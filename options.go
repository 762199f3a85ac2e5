package podbox

import "context"

// Label namespace used for every label this package writes to the
// engine. Queries in persistence.go filter on these exclusively — there
// is no separate process-side registry of which containers this library
// created.
const (
	labelManaged   = "io.podbox.managed"
	labelInstance  = "io.podbox.instance"
	labelProject   = "io.podbox.project"
	labelPersist   = "io.podbox.persist"
	labelDataPath  = "io.podbox.data-path"
	labelCreatedAt = "io.podbox.created-at"
)

// CreateOptions configures a new container. Socket is resolved via
// engine.DetectSocket when empty.
type CreateOptions struct {
	Socket      string
	Image       string
	Name        string
	MemLimit    string
	CPUCores    float64
	Env         []string
	WorkDir     string
	Ports       []string
	Volumes     map[string]string
	Project     string
	Persist     bool
	DataPath    string
	Labels      map[string]string
	LogWriter   LogWriter
}

// CreateOption mutates a CreateOptions; used as functional options on
// Create so callers only specify what deviates from the defaults.
type CreateOption func(*CreateOptions)

func WithSocket(path string) CreateOption        { return func(o *CreateOptions) { o.Socket = path } }
func WithName(name string) CreateOption          { return func(o *CreateOptions) { o.Name = name } }
func WithMemLimit(limit string) CreateOption     { return func(o *CreateOptions) { o.MemLimit = limit } }
func WithCPUCores(cores float64) CreateOption    { return func(o *CreateOptions) { o.CPUCores = cores } }
func WithEnv(env ...string) CreateOption         { return func(o *CreateOptions) { o.Env = env } }
func WithWorkDir(dir string) CreateOption        { return func(o *CreateOptions) { o.WorkDir = dir } }
func WithPorts(ports ...string) CreateOption     { return func(o *CreateOptions) { o.Ports = ports } }
func WithVolumes(v map[string]string) CreateOption { return func(o *CreateOptions) { o.Volumes = v } }
func WithProject(project string) CreateOption    { return func(o *CreateOptions) { o.Project = project } }
func WithPersist(persist bool) CreateOption      { return func(o *CreateOptions) { o.Persist = persist } }
func WithDataPath(path string) CreateOption      { return func(o *CreateOptions) { o.DataPath = path } }
func WithLabels(labels map[string]string) CreateOption {
	return func(o *CreateOptions) { o.Labels = labels }
}
func WithLogWriter(w LogWriter) CreateOption { return func(o *CreateOptions) { o.LogWriter = w } }

func defaultCreateOptions() CreateOptions {
	return CreateOptions{
		Image:    "docker.io/library/alpine:latest",
		CPUCores: 1.0,
		MemLimit: "256m",
	}
}

// RunOptions configures one exec call.
type RunOptions struct {
	Lang      string // "" (sh -c) or "python"
	Env       []string
	WorkDir   string
	Timeout   int // seconds, 0 = no timeout
	MaxOutput int // bytes, 0 = unlimited
	Ctx       context.Context
}

type RunOption func(*RunOptions)

func WithLang(lang string) RunOption    { return func(o *RunOptions) { o.Lang = lang } }
func WithRunEnv(env ...string) RunOption { return func(o *RunOptions) { o.Env = env } }
func WithRunWorkDir(dir string) RunOption { return func(o *RunOptions) { o.WorkDir = dir } }
func WithTimeout(seconds int) RunOption { return func(o *RunOptions) { o.Timeout = seconds } }
func WithMaxOutput(bytes int) RunOption { return func(o *RunOptions) { o.MaxOutput = bytes } }

func defaultRunOptions() RunOptions {
	return RunOptions{MaxOutput: 10 * 1024 * 1024}
}

// buildArgv turns a command string into an argv according to lang,
// mirroring pocketdock's python-vs-shell dispatch.
func buildArgv(command, lang string) []string {
	if lang == "python" {
		return []string{"python3", "-c", command}
	}
	return []string{"sh", "-c", command}
}
