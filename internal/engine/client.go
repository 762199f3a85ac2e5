package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// Client is the typed wrapper over Transport for the subset of the
// Docker/Podman HTTP API this module needs: container lifecycle, exec,
// archive, and image passthroughs.
type Client struct {
	t *Transport
}

func NewClient(socketPath string) *Client {
	return &Client{t: NewTransport(socketPath)}
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// mapError applies the status-code-to-error table: 200, 201, 204, and
// 304 are success; 404/409/500 are mapped onto domain errors depending on which
// endpoint family produced them, since the same status code means
// different things on different paths (a 404 on /containers/X/json means
// "no such container", a 404 on /images/create means "no such image").
func mapError(kind string, id string, status int, body []byte, method, path string) error {
	switch {
	case status == 200 || status == 201 || status == 204 || status == 304:
		return nil
	case status == 404 && kind == "container":
		return &ContainerNotFoundError{ContainerID: id}
	case status == 404 && kind == "image":
		return &ImageNotFoundError{Image: id}
	case status == 404 && kind == "archive":
		return &FileNotFoundError{Path: id}
	case status == 409 && kind == "container":
		return &ContainerNotRunningError{ContainerID: id}
	case status == 500 && kind == "exec-create" && strings.Contains(strings.ToLower(string(body)), "container state improper"):
		// Podman quirk: exec-create on a stopped container returns 500
		// with this message instead of Docker's 409.
		return &ContainerNotRunningError{ContainerID: id}
	default:
		return &StatusError{StatusCode: status, Body: body, Method: method, Path: path}
	}
}

func (c *Client) doJSON(ctx context.Context, kind, id, method, path string, payload any) (int, []byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("engine: marshal request: %w", err)
		}
		body = b
	}
	status, _, respBody, err := c.t.Request(ctx, method, path, jsonHeaders, body)
	if err != nil {
		return 0, nil, err
	}
	return status, respBody, mapError(kind, id, status, respBody, method, path)
}

// Ping checks basic engine reachability.
func (c *Client) Ping(ctx context.Context) error {
	status, _, body, err := c.t.Request(ctx, "GET", "/_ping", nil, nil)
	if err != nil {
		return err
	}
	return mapError("", "", status, body, "GET", "/_ping")
}

// CreateContainerResult is the engine's response to POST /containers/create.
type CreateContainerResult struct {
	ID       string   `json:"Id"`
	Warnings []string `json:"Warnings"`
}

func (c *Client) CreateContainer(ctx context.Context, name string, spec any) (CreateContainerResult, error) {
	path := "/containers/create"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	_, body, err := c.doJSON(ctx, "container", name, "POST", path, spec)
	if err != nil {
		return CreateContainerResult{}, err
	}
	var result CreateContainerResult
	if err := json.Unmarshal(body, &result); err != nil {
		return CreateContainerResult{}, fmt.Errorf("engine: decode create response: %w", err)
	}
	return result, nil
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	_, _, err := c.doJSON(ctx, "container", id, "POST", "/containers/"+id+"/start", nil)
	return err
}

func (c *Client) StopContainer(ctx context.Context, id string, timeoutSeconds int) error {
	path := fmt.Sprintf("/containers/%s/stop?t=%d", id, timeoutSeconds)
	_, _, err := c.doJSON(ctx, "container", id, "POST", path, nil)
	return err
}

func (c *Client) RestartContainer(ctx context.Context, id string, timeoutSeconds int) error {
	path := fmt.Sprintf("/containers/%s/restart?t=%d", id, timeoutSeconds)
	_, _, err := c.doJSON(ctx, "container", id, "POST", path, nil)
	return err
}

func (c *Client) RemoveContainer(ctx context.Context, id string, force, volumes bool) error {
	path := fmt.Sprintf("/containers/%s?force=%t&v=%t", id, force, volumes)
	status, _, body, err := c.t.Request(ctx, "DELETE", path, nil, nil)
	if err != nil {
		return err
	}
	return mapError("container", id, status, body, "DELETE", path)
}

// InspectContainer returns the raw engine JSON; podbox decodes only the
// fields it needs, since the full inspect payload is large and
// engine-version-dependent.
func (c *Client) InspectContainer(ctx context.Context, id string) ([]byte, error) {
	path := "/containers/" + id + "/json"
	status, _, body, err := c.t.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := mapError("container", id, status, body, "GET", path); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) ContainerStats(ctx context.Context, id string) ([]byte, error) {
	path := "/containers/" + id + "/stats?stream=false"
	status, _, body, err := c.t.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := mapError("container", id, status, body, "GET", path); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) ContainerTop(ctx context.Context, id string) ([]byte, error) {
	path := "/containers/" + id + "/top"
	status, _, body, err := c.t.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := mapError("container", id, status, body, "GET", path); err != nil {
		return nil, err
	}
	return body, nil
}

// ListContainers returns the raw JSON array from GET /containers/json,
// filtered by the given engine label filters (ANDed).
func (c *Client) ListContainers(ctx context.Context, all bool, labelFilters []string) ([]byte, error) {
	filters := map[string][]string{"label": labelFilters}
	fj, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal filters: %w", err)
	}
	path := fmt.Sprintf("/containers/json?all=%t&filters=%s", all, url.QueryEscape(string(fj)))
	status, _, body, err := c.t.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := mapError("", "", status, body, "GET", path); err != nil {
		return nil, err
	}
	return body, nil
}

// PushArchive uploads a tar stream to be extracted at path inside the
// container (PUT /containers/{id}/archive).
func (c *Client) PushArchive(ctx context.Context, id, path string, tarData []byte) error {
	reqPath := fmt.Sprintf("/containers/%s/archive?path=%s", id, url.QueryEscape(path))
	headers := map[string]string{"Content-Type": "application/x-tar"}
	status, _, body, err := c.t.Request(ctx, "PUT", reqPath, headers, tarData)
	if err != nil {
		return err
	}
	return mapError("archive", path, status, body, "PUT", reqPath)
}

// PullArchive downloads a tar stream of path from inside the container
// (GET /containers/{id}/archive), returning an open reader the caller
// must close.
func (c *Client) PullArchive(ctx context.Context, id, path string) (io.ReadCloser, error) {
	reqPath := fmt.Sprintf("/containers/%s/archive?path=%s", id, url.QueryEscape(path))
	resp, err := c.t.RequestStream(ctx, "GET", reqPath, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		resp.Close()
		return nil, mapError("archive", path, resp.StatusCode, body, "GET", reqPath)
	}
	return resp, nil
}

// CommitContainerResult is the engine's response to POST /commit.
type CommitContainerResult struct {
	ID string `json:"Id"`
}

func (c *Client) CommitContainer(ctx context.Context, id, repo, tag string) (CommitContainerResult, error) {
	path := fmt.Sprintf("/commit?container=%s", url.QueryEscape(id))
	if repo != "" {
		path += "&repo=" + url.QueryEscape(repo)
	}
	if tag != "" {
		path += "&tag=" + url.QueryEscape(tag)
	}
	_, body, err := c.doJSON(ctx, "container", id, "POST", path, nil)
	if err != nil {
		return CommitContainerResult{}, err
	}
	var result CommitContainerResult
	if err := json.Unmarshal(body, &result); err != nil {
		return CommitContainerResult{}, fmt.Errorf("engine: decode commit response: %w", err)
	}
	return result, nil
}

// ExecCreateSpec mirrors the subset of the engine's exec-create payload
// this module uses.
type ExecCreateSpec struct {
	Cmd          []string `json:"Cmd"`
	Env          []string `json:"Env,omitempty"`
	AttachStdin  bool     `json:"AttachStdin"`
	AttachStdout bool     `json:"AttachStdout"`
	AttachStderr bool     `json:"AttachStderr"`
	Tty          bool     `json:"Tty"`
	WorkingDir   string   `json:"WorkingDir,omitempty"`
}

type execCreateResult struct {
	ID string `json:"Id"`
}

func (c *Client) ExecCreate(ctx context.Context, containerID string, spec ExecCreateSpec) (string, error) {
	path := "/containers/" + containerID + "/exec"
	status, body, err := c.doJSONRaw(ctx, "POST", path, spec)
	if err != nil {
		return "", err
	}
	if err := mapError("exec-create", containerID, status, body, "POST", path); err != nil {
		return "", err
	}
	var result execCreateResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("engine: decode exec-create response: %w", err)
	}
	return result.ID, nil
}

func (c *Client) doJSONRaw(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("engine: marshal request: %w", err)
	}
	status, _, body, err := c.t.Request(ctx, method, path, jsonHeaders, b)
	if err != nil {
		return 0, nil, err
	}
	return status, body, nil
}

// ExecStart attaches to the exec instance and returns the live hijacked
// connection so the caller can demux the multiplex frames as they
// arrive. Tty=false is the only mode this module uses: a tty-attached
// exec would not be frame-multiplexed at all.
func (c *Client) ExecStart(ctx context.Context, execID string) (*Response, error) {
	path := "/exec/" + execID + "/start"
	spec := map[string]any{"Detach": false, "Tty": false}
	b, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal exec-start: %w", err)
	}
	resp, err := c.t.RequestRaw(ctx, "POST", path, jsonHeaders, b)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Close()
		return nil, mapError("container", execID, resp.StatusCode, body, "POST", path)
	}
	return resp, nil
}

// ExecStartStream is ExecStart plus a report of whether the attached
// response is chunked-transfer-encoded rather than a raw hijacked
// connection — some engine/proxy combinations frame the exec-start
// response that way, and the caller needs to pick a matching demux.
func (c *Client) ExecStartStream(ctx context.Context, execID string) (*Response, bool, error) {
	resp, err := c.ExecStart(ctx, execID)
	if err != nil {
		return nil, false, err
	}
	chunked := strings.EqualFold(resp.Headers["transfer-encoding"], "chunked")
	return resp, chunked, nil
}

// ExecInspectResult mirrors GET /exec/{id}/json.
type ExecInspectResult struct {
	ExitCode *int `json:"ExitCode"`
	Running  bool `json:"Running"`
	Pid      int  `json:"Pid"`
}

func (c *Client) ExecInspect(ctx context.Context, execID string) (ExecInspectResult, error) {
	path := "/exec/" + execID + "/json"
	status, _, body, err := c.t.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return ExecInspectResult{}, err
	}
	if err := mapError("", "", status, body, "GET", path); err != nil {
		return ExecInspectResult{}, err
	}
	var result ExecInspectResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ExecInspectResult{}, fmt.Errorf("engine: decode exec-inspect response: %w", err)
	}
	return result, nil
}

// BuildImage, SaveImage, and LoadImage are thin passthroughs; podbox's
// Non-goals exclude real image management, but build/commit/save/load are
// needed to round-trip a Snapshot or a build context into a runnable image
// elsewhere.
func (c *Client) BuildImage(ctx context.Context, tarContext []byte, tag string) ([]byte, error) {
	path := "/build"
	if tag != "" {
		path += "?t=" + url.QueryEscape(tag)
	}
	headers := map[string]string{"Content-Type": "application/x-tar"}
	status, _, body, err := c.t.Request(ctx, "POST", path, headers, tarContext)
	if err != nil {
		return nil, err
	}
	if err := mapError("image", tag, status, body, "POST", path); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) SaveImage(ctx context.Context, ref string) (io.ReadCloser, error) {
	path := "/images/" + url.PathEscape(ref) + "/get"
	resp, err := c.t.RequestStream(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		resp.Close()
		return nil, mapError("image", ref, resp.StatusCode, body, "GET", path)
	}
	return resp, nil
}

func (c *Client) LoadImage(ctx context.Context, tarData []byte) error {
	headers := map[string]string{"Content-Type": "application/x-tar"}
	status, _, body, err := c.t.Request(ctx, "POST", "/images/load", headers, tarData)
	if err != nil {
		return err
	}
	return mapError("", "", status, body, "POST", "/images/load")
}

func itoa(n int) string { return strconv.Itoa(n) }
