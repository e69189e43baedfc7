package enrich

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ContainerProvider is the external collaborator interface for §4.5 step 4's
// CONTAINER block. The default implementation resolves a container ID from
// /proc/<pid>/cgroup the way the container runtimes themselves lay out
// cgroup paths (.../docker/<id>, .../<id>.scope, .../crio-<id>.scope); a
// test double or a future runtime-API-backed implementation can satisfy the
// same interface without the enricher knowing the difference.
type ContainerProvider interface {
	ContainerInfo(pid int32) (ContainerInfo, bool)
}

// ContainerInfo is the CONTAINER enrichment block's payload.
type ContainerInfo struct {
	ID      string
	Runtime string
}

var cgroupContainerRe = regexp.MustCompile(`(?:docker[-/]|crio-|cri-containerd-|libpod-)?([0-9a-f]{64}|[0-9a-f]{12})(?:\.scope)?$`)

// CgroupContainerProvider is the default ContainerProvider, grounded in the
// cgroup-path sniffing idiom podman/docker tooling uses to identify which
// container a host pid belongs to.
type CgroupContainerProvider struct{}

// ContainerInfo reads /proc/<pid>/cgroup and extracts a container id from
// the first line whose path matches a known runtime's cgroup naming
// convention.
func (CgroupContainerProvider) ContainerInfo(pid int32) (ContainerInfo, bool) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/cgroup", pid))
	if err != nil {
		return ContainerInfo{}, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		m := cgroupContainerRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		runtime := "unknown"
		switch {
		case strings.Contains(line, "docker"):
			runtime = "docker"
		case strings.Contains(line, "crio"):
			runtime = "cri-o"
		case strings.Contains(line, "containerd"):
			runtime = "containerd"
		case strings.Contains(line, "libpod"):
			runtime = "podman"
		}
		return ContainerInfo{ID: m[1], Runtime: runtime}, true
	}
	return ContainerInfo{}, false
}
