package discovery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
)

// Runner executes a command and returns its standard output. A non-zero exit
// must be reported as an error.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec, killing it when ctx is done.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// DockerCLI lists containers by shelling out to `docker ps`.
type DockerCLI struct {
	binary  string
	host    string
	run     Runner
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewDockerCLI creates the adapter. binary defaults to "docker".
func NewDockerCLI(binary, host string, log logger.Logger, m *metrics.Metrics) *DockerCLI {
	if binary == "" {
		binary = "docker"
	}
	return &DockerCLI{
		binary:  binary,
		host:    host,
		run:     ExecRunner,
		logger:  log,
		metrics: m,
	}
}

// WithRunner replaces the command runner. Used by tests.
func (d *DockerCLI) WithRunner(r Runner) *DockerCLI {
	d.run = r
	return d
}

func (d *DockerCLI) Name() string { return AdapterDockerCLI }

// psLine is one line of `docker ps --format '{{json .}}'`.
type psLine struct {
	ID     string `json:"ID"`
	Image  string `json:"Image"`
	Names  string `json:"Names"`
	Ports  string `json:"Ports"`
	State  string `json:"State"`
	Status string `json:"Status"`
}

func (d *DockerCLI) Discover(ctx context.Context) []domain.Entry {
	out, err := d.run(ctx, d.binary, "ps", "--format", "{{json .}}")
	if err == nil {
		var entries []domain.Entry
		entries, err = d.parse(out)
		if err == nil {
			d.metrics.Discovery(d.Name(), outcome(ctx, nil))
			d.logger.Debug("docker discovery finished", logger.Int("containers", len(entries)))
			return entries
		}
	}

	d.metrics.Discovery(d.Name(), outcome(ctx, err))
	d.logger.Warn("docker discovery failed, returning no candidates",
		logger.String("binary", d.binary),
		logger.Error(err))
	return []domain.Entry{}
}

func (d *DockerCLI) parse(out []byte) ([]domain.Entry, error) {
	entries := make([]domain.Entry, 0)
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var c psLine
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("unparseable docker output at line %d: %w", lineNo, err)
		}
		entries = append(entries, d.toEntry(c))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading docker output: %w", err)
	}
	return entries, nil
}

func (d *DockerCLI) toEntry(c psLine) domain.Entry {
	name := c.Names
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		name = c.ID
	}

	return domain.Entry{
		Name:   name,
		Host:   d.host,
		Kind:   domain.KindContainer,
		Status: containerStatus(c.State, c.Status),
		Ports:  c.Ports,
		Note:   c.Image,
	}
}

// containerStatus maps a container's reported state to an entry status: any
// state mentioning "up" (or the engine state "running") is running.
func containerStatus(state, status string) domain.Status {
	if strings.EqualFold(state, "running") ||
		strings.Contains(strings.ToLower(state), "up") ||
		strings.Contains(strings.ToLower(status), "up") {
		return domain.StatusRunning
	}
	return domain.StatusStopped
}
