package podbox

import (
	"context"
	"encoding/json"
	"fmt"
)

type portBindingPayload struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

type networkEndpointPayload struct {
	IPAddress string `json:"IPAddress"`
}

type inspectPayload struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	State struct {
		Status    string `json:"Status"`
		Running   bool   `json:"Running"`
		StartedAt string `json:"StartedAt"`
	} `json:"State"`
	Created string `json:"Created"`
	Config  struct {
		Image  string            `json:"Image"`
		Labels map[string]string `json:"Labels"`
	} `json:"Config"`
	HostConfig struct {
		Memory       int64                            `json:"Memory"`
		NanoCpus     int64                            `json:"NanoCpus"`
		PortBindings map[string][]portBindingPayload `json:"PortBindings"`
	} `json:"HostConfig"`
	NetworkSettings struct {
		IPAddress string                            `json:"IPAddress"`
		Networks  map[string]networkEndpointPayload `json:"Networks"`
		Ports     map[string][]portBindingPayload   `json:"Ports"`
	} `json:"NetworkSettings"`
}

type statsPayload struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs     int    `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
	PidsStats struct {
		Current int `json:"current"`
	} `json:"pids_stats"`
}

type topPayload struct {
	Titles    []string   `json:"Titles"`
	Processes [][]string `json:"Processes"`
}

// Info assembles the container's current identity, lifecycle state, and
// resource usage from three engine calls (inspect, stats, top), the way
// pocketdock.helpers.build_container_info does.
func (c *Container) Info(ctx context.Context) (ContainerInfo, error) {
	raw, err := c.client.InspectContainer(ctx, c.id)
	if err != nil {
		return ContainerInfo{}, translate(err)
	}
	var insp inspectPayload
	if err := json.Unmarshal(raw, &insp); err != nil {
		return ContainerInfo{}, fmt.Errorf("podbox: decode inspect response: %w", err)
	}

	info := ContainerInfo{
		ID:             c.id,
		Name:           c.name,
		Image:          insp.Config.Image,
		State:          insp.State.Status,
		CreatedAt:      parseEngineTimestamp(insp.Created),
		StartedAt:      parseEngineTimestamp(insp.State.StartedAt),
		Labels:         insp.Config.Labels,
		Project:        insp.Config.Labels[labelProject],
		Persist:        insp.Config.Labels[labelPersist] == "true",
		DataPath:       insp.Config.Labels[labelDataPath],
		IPAddress:      firstNonEmptyIP(insp),
		NetworkEnabled: len(insp.NetworkSettings.Networks) > 0 || insp.NetworkSettings.IPAddress != "",
		Ports:          formatDeclaredPorts(insp.HostConfig.PortBindings),
	}

	if insp.State.Running {
		rawStats, err := c.client.ContainerStats(ctx, c.id)
		if err == nil {
			var stats statsPayload
			if json.Unmarshal(rawStats, &stats) == nil {
				cpuDelta := stats.CPUStats.CPUUsage.TotalUsage - stats.PreCPUStats.CPUUsage.TotalUsage
				sysDelta := stats.CPUStats.SystemCPUUsage - stats.PreCPUStats.SystemCPUUsage
				info.CPUPercent = computeCPUPercent(cpuDelta, sysDelta, stats.CPUStats.OnlineCPUs)
				info.MemUsage = int64(stats.MemoryStats.Usage)
				info.MemLimit = int64(stats.MemoryStats.Limit)
				if info.MemLimit > 0 {
					info.MemPercent = float64(info.MemUsage) / float64(info.MemLimit) * 100.0
				}
				info.PIDs = stats.PidsStats.Current
			}
		}

		rawTop, err := c.client.ContainerTop(ctx, c.id)
		if err == nil {
			var top topPayload
			if json.Unmarshal(rawTop, &top) == nil {
				info.Processes = extractProcesses(top.Titles, top.Processes)
			}
		}
	}

	return info, nil
}

// firstNonEmptyIP prefers the top-level NetworkSettings.IPAddress (the
// default bridge network) and falls back to the first address found among
// any named networks, the way Docker populates one or the other depending
// on network mode.
func firstNonEmptyIP(insp inspectPayload) string {
	if insp.NetworkSettings.IPAddress != "" {
		return insp.NetworkSettings.IPAddress
	}
	for _, n := range insp.NetworkSettings.Networks {
		if n.IPAddress != "" {
			return n.IPAddress
		}
	}
	return ""
}

// formatDeclaredPorts renders HostConfig.PortBindings as "containerPort ->
// hostIP:hostPort" strings, one per binding, for display in info/list
// output.
func formatDeclaredPorts(bindings map[string][]portBindingPayload) []string {
	var ports []string
	for containerPort, hostBindings := range bindings {
		if len(hostBindings) == 0 {
			ports = append(ports, containerPort)
			continue
		}
		for _, b := range hostBindings {
			ports = append(ports, fmt.Sprintf("%s -> %s:%s", containerPort, b.HostIP, b.HostPort))
		}
	}
	return ports
}

// extractProcesses zips the engine's parallel Titles/Processes arrays
// into one map per row, keyed by column name.
func extractProcesses(titles []string, rows [][]string) []map[string]string {
	var out []map[string]string
	for _, row := range rows {
		entry := map[string]string{}
		for i, title := range titles {
			if i < len(row) {
				entry[title] = row[i]
			}
		}
		out = append(out, entry)
	}
	return out
}
