package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
)

// ContainerLister is the slice of the Docker Engine client the adapter needs.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// DockerAPI lists containers through the Docker Engine API, honouring
// DOCKER_HOST and friends. Unlike DockerCLI it also reports stopped containers.
type DockerAPI struct {
	lister  ContainerLister
	host    string
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewDockerAPI creates the adapter. A nil lister connects to the engine from the
// environment on every run.
func NewDockerAPI(lister ContainerLister, host string, log logger.Logger, m *metrics.Metrics) *DockerAPI {
	return &DockerAPI{
		lister:  lister,
		host:    host,
		logger:  log,
		metrics: m,
	}
}

func (d *DockerAPI) Name() string { return AdapterDockerAPI }

func (d *DockerAPI) Discover(ctx context.Context) []domain.Entry {
	containers, err := d.list(ctx)
	d.metrics.Discovery(d.Name(), outcome(ctx, err))
	if err != nil {
		d.logger.Warn("docker api discovery failed, returning no candidates", logger.Error(err))
		return []domain.Entry{}
	}

	entries := make([]domain.Entry, 0, len(containers))
	for _, c := range containers {
		entries = append(entries, d.toEntry(c))
	}
	d.logger.Debug("docker api discovery finished", logger.Int("containers", len(entries)))
	return entries
}

func (d *DockerAPI) list(ctx context.Context) ([]container.Summary, error) {
	lister := d.lister
	if lister == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}
		defer func() { _ = cli.Close() }()
		lister = cli
	}

	containers, err := lister.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return containers, nil
}

func (d *DockerAPI) toEntry(c container.Summary) domain.Entry {
	name := c.ID
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return domain.Entry{
		Name:   name,
		Host:   d.host,
		Kind:   domain.KindContainer,
		Status: containerStatus(string(c.State), c.Status),
		Ports:  formatPorts(c),
		Note:   c.Image,
	}
}

// formatPorts renders port bindings the way `docker ps` summarizes them,
// e.g. "0.0.0.0:8080->80/tcp, 443/tcp".
func formatPorts(c container.Summary) string {
	parts := make([]string, 0, len(c.Ports))
	for _, p := range c.Ports {
		switch {
		case p.PublicPort != 0 && p.IP != "":
			parts = append(parts, fmt.Sprintf("%s:%d->%d/%s", p.IP, p.PublicPort, p.PrivatePort, p.Type))
		case p.PublicPort != 0:
			parts = append(parts, fmt.Sprintf("%d->%d/%s", p.PublicPort, p.PrivatePort, p.Type))
		default:
			parts = append(parts, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
		}
	}
	return strings.Join(parts, ", ")
}
