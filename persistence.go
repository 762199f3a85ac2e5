package podbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docker/go-connections/nat"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// Persistence queries the engine directly by label, the way
// pocketdock.persistence does, rather than keeping a process-side
// registry of which containers this library has created. Any engine
// with a container carrying io.podbox.managed=true is fair game,
// including ones created by a different process or a previous run of
// this one.

type listItemPayload struct {
	ID      string            `json:"Id"`
	Names   []string          `json:"Names"`
	Image   string            `json:"Image"`
	State   string            `json:"State"`
	Created int64             `json:"Created"`
	Labels  map[string]string `json:"Labels"`
}

func toListItem(raw listItemPayload) ContainerListItem {
	name := raw.Labels[labelInstance]
	if name == "" && len(raw.Names) > 0 {
		name = raw.Names[0]
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
	}
	return ContainerListItem{
		ID:        raw.ID,
		Name:      name,
		Image:     raw.Image,
		State:     raw.State,
		Project:   raw.Labels[labelProject],
		Persist:   raw.Labels[labelPersist] == "true",
		DataPath:  raw.Labels[labelDataPath],
		CreatedAt: parseEngineTimestamp(raw.Labels[labelCreatedAt]),
	}
}

// List returns every podbox-managed container, optionally filtered to
// one project.
func List(ctx context.Context, socket string, project string) ([]ContainerListItem, error) {
	path, err := engine.DetectSocket(socket)
	if err != nil {
		return nil, &EngineUnavailableError{Candidates: []string{socket}}
	}
	client := engine.NewClient(path)

	filters := []string{labelManaged + "=true"}
	if project != "" {
		filters = append(filters, fmt.Sprintf("%s=%s", labelProject, project))
	}

	raw, err := client.ListContainers(ctx, true, filters)
	if err != nil {
		return nil, translate(err)
	}
	var rows []listItemPayload
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("podbox: decode container list: %w", err)
	}

	items := make([]ContainerListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toListItem(row))
	}
	return items, nil
}

// Resume reattaches a Container handle to an already-running (or
// stopped-but-persisted) container previously created by this library,
// identified by its instance name.
func Resume(ctx context.Context, socket, name string) (*Container, error) {
	items, err := List(ctx, socket, "")
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Name != name && item.ID != name {
			continue
		}
		path, err := engine.DetectSocket(socket)
		if err != nil {
			return nil, &EngineUnavailableError{Candidates: []string{socket}}
		}
		client := engine.NewClient(path)
		if item.State != "running" {
			if err := client.StartContainer(ctx, item.ID); err != nil {
				return nil, translate(err)
			}
		}

		rawInspect, err := client.InspectContainer(ctx, item.ID)
		if err != nil {
			return nil, translate(err)
		}
		var insp inspectPayload
		if err := json.Unmarshal(rawInspect, &insp); err != nil {
			return nil, fmt.Errorf("podbox: decode inspect response: %w", err)
		}

		portBindings := parsePortBindings(insp.HostConfig.PortBindings)
		exposedPorts := nat.PortSet{}
		for port := range portBindings {
			exposedPorts[port] = struct{}{}
		}

		return &Container{
			id:           item.ID,
			name:         item.Name,
			image:        insp.Config.Image,
			socket:       path,
			client:       client,
			state:        StateRunning,
			project:      item.Project,
			persist:      item.Persist,
			data:         item.DataPath,
			labels:       insp.Config.Labels,
			log:          newInstanceLog(nil),
			memBytes:     insp.HostConfig.Memory,
			nanoCPUs:     insp.HostConfig.NanoCpus,
			exposedPorts: exposedPorts,
			portBindings: portBindings,
		}, nil
	}
	return nil, &ContainerNotFoundError{ContainerID: name}
}

// Destroy force-removes a managed container by name or id.
func Destroy(ctx context.Context, socket, name string) error {
	items, err := List(ctx, socket, "")
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Name != name && item.ID != name {
			continue
		}
		path, err := engine.DetectSocket(socket)
		if err != nil {
			return &EngineUnavailableError{Candidates: []string{socket}}
		}
		client := engine.NewClient(path)
		return ignoreNotFoundOrNotRunning(translate(client.RemoveContainer(ctx, item.ID, true, true)))
	}
	return &ContainerNotFoundError{ContainerID: name}
}

// Stop gracefully stops a managed container without removing it,
// leaving it available for a later Resume.
func Stop(ctx context.Context, socket, name string, timeoutSeconds int) error {
	items, err := List(ctx, socket, "")
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Name != name && item.ID != name {
			continue
		}
		path, err := engine.DetectSocket(socket)
		if err != nil {
			return &EngineUnavailableError{Candidates: []string{socket}}
		}
		client := engine.NewClient(path)
		return ignoreNotFoundOrNotRunning(translate(client.StopContainer(ctx, item.ID, timeoutSeconds)))
	}
	return &ContainerNotFoundError{ContainerID: name}
}

// Prune force-removes every managed container not currently in the
// running state, returning the names of those it removed. A container
// still running is left alone regardless of its persist flag — prune
// cleans up stopped and crashed containers, not active sandboxes.
func Prune(ctx context.Context, socket, project string) ([]string, error) {
	items, err := List(ctx, socket, project)
	if err != nil {
		return nil, err
	}
	path, err := engine.DetectSocket(socket)
	if err != nil {
		return nil, &EngineUnavailableError{Candidates: []string{socket}}
	}
	client := engine.NewClient(path)

	var removed []string
	for _, item := range items {
		if item.State == "running" {
			continue
		}
		err := ignoreNotFoundOrNotRunning(translate(client.RemoveContainer(ctx, item.ID, true, true)))
		if err != nil {
			return removed, err
		}
		removed = append(removed, item.Name)
	}
	return removed, nil
}
