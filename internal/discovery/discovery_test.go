package discovery

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/outpost/internal/config"
	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
)

func staticRunner(out string, err error) Runner {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func newCLI(r Runner) *DockerCLI {
	return NewDockerCLI("docker", "node1", logger.NewNop(), nil).WithRunner(r)
}

func TestDockerCLIParsesContainers(t *testing.T) {
	out := `{"ID":"abc","Image":"grafana/grafana:10","Names":"grafana","Ports":"0.0.0.0:3000->3000/tcp","State":"running","Status":"Up 3 hours"}
{"ID":"def","Image":"postgres:16","Names":"db,db-alias","Ports":"","State":"exited","Status":"Exited (0) 2 days ago"}

`
	got := newCLI(staticRunner(out, nil)).Discover(context.Background())

	require.Equal(t, []domain.Entry{
		{Name: "grafana", Host: "node1", Kind: domain.KindContainer, Status: domain.StatusRunning, Ports: "0.0.0.0:3000->3000/tcp", Note: "grafana/grafana:10"},
		{Name: "db", Host: "node1", Kind: domain.KindContainer, Status: domain.StatusStopped, Note: "postgres:16"},
	}, got)
}

func TestDockerCLIPassesFormatArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}

	got := NewDockerCLI("/usr/local/bin/docker", "h", logger.NewNop(), nil).WithRunner(runner).Discover(context.Background())
	require.Empty(t, got)
	require.Equal(t, "/usr/local/bin/docker", gotName)
	require.Equal(t, []string{"ps", "--format", "{{json .}}"}, gotArgs)
}

func TestDockerCLIFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name   string
		runner Runner
	}{
		{"non-zero exit", staticRunner("", errors.New("exit status 1"))},
		{"tool absent", staticRunner("", exec.ErrNotFound)},
		{"garbage output", staticRunner("Cannot connect to the Docker daemon\n", nil)},
		{"partial garbage", staticRunner(`{"Names":"ok","State":"running"}`+"\nnot json\n", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newCLI(tt.runner).Discover(context.Background())
			require.NotNil(t, got)
			require.Empty(t, got)
		})
	}
}

func TestDockerCLIMissingBinary(t *testing.T) {
	d := NewDockerCLI(filepath.Join(t.TempDir(), "no-docker"), "h", logger.NewNop(), nil)
	require.Empty(t, d.Discover(context.Background()))
}

func TestDockerCLITimeoutYieldsEmpty(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	blocking := func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	d := NewDockerCLI("docker", "h", logger.NewNop(), m).WithRunner(blocking)

	start := time.Now()
	scan := Run(context.Background(), d, "h", 50*time.Millisecond)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Empty(t, scan.Entries)
	require.NotNil(t, scan.Entries)
	require.Equal(t, 1, testutil.CollectAndCount(reg, "outpost_discovery_runs_total"))
}

func TestContainerStatus(t *testing.T) {
	tests := []struct {
		state, status string
		want          domain.Status
	}{
		{"running", "Up 5 minutes", domain.StatusRunning},
		{"", "Up 5 minutes (healthy)", domain.StatusRunning},
		{"", "UP", domain.StatusRunning},
		{"running", "", domain.StatusRunning},
		{"exited", "Exited (1) 3 seconds ago", domain.StatusStopped},
		{"created", "Created", domain.StatusStopped},
		{"", "", domain.StatusStopped},
	}

	for _, tt := range tests {
		if got := containerStatus(tt.state, tt.status); got != tt.want {
			t.Errorf("containerStatus(%q, %q) = %v, want %v", tt.state, tt.status, got, tt.want)
		}
	}
}

type fakeLister struct {
	containers []container.Summary
	err        error
	opts       container.ListOptions
}

func (f *fakeLister) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.opts = opts
	return f.containers, f.err
}

func TestDockerAPIMapsContainers(t *testing.T) {
	lister := &fakeLister{containers: []container.Summary{
		{
			ID:     "abc",
			Names:  []string{"/jellyfin"},
			Image:  "jellyfin/jellyfin",
			State:  "running",
			Status: "Up 2 days",
			Ports: []container.Port{
				{IP: "0.0.0.0", PrivatePort: 8096, PublicPort: 8096, Type: "tcp"},
				{PrivatePort: 1900, Type: "udp"},
			},
		},
		{ID: "def", Image: "busybox", State: "exited", Status: "Exited (0)"},
	}}

	got := NewDockerAPI(lister, "media", logger.NewNop(), nil).Discover(context.Background())

	require.True(t, lister.opts.All)
	require.Equal(t, []domain.Entry{
		{Name: "jellyfin", Host: "media", Kind: domain.KindContainer, Status: domain.StatusRunning, Ports: "0.0.0.0:8096->8096/tcp, 1900/udp", Note: "jellyfin/jellyfin"},
		{Name: "def", Host: "media", Kind: domain.KindContainer, Status: domain.StatusStopped, Note: "busybox"},
	}, got)
}

func TestDockerAPIErrorYieldsEmpty(t *testing.T) {
	lister := &fakeLister{err: errors.New("daemon unreachable")}

	got := NewDockerAPI(lister, "h", logger.NewNop(), nil).Discover(context.Background())
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestHomepageAdapter(t *testing.T) {
	dir := t.TempDir()
	services := filepath.Join(dir, "services.yaml")
	bookmarks := filepath.Join(dir, "bookmarks.yaml")
	require.NoError(t, os.WriteFile(services, []byte(`
- Media:
    - Plex:
        href: https://plex.lab.lan
        description: Streaming
`), 0o644))
	require.NoError(t, os.WriteFile(bookmarks, []byte(`
- Docs:
    - Go:
        - abbr: GO
          href: https://go.dev/doc
`), 0o644))

	got := NewHomepage(services, bookmarks, logger.NewNop(), nil).Discover(context.Background())

	require.Equal(t, []domain.Entry{
		{Name: "Plex", Host: "plex.lab.lan", Kind: domain.KindService, Status: domain.StatusUnknown, Note: "Streaming"},
		{Name: "Go", Host: "go.dev", Kind: domain.KindOther, Status: domain.StatusUnknown, Note: "https://go.dev/doc"},
	}, got)
}

func TestHomepageAdapterPartialFailure(t *testing.T) {
	dir := t.TempDir()
	services := filepath.Join(dir, "services.yaml")
	require.NoError(t, os.WriteFile(services, []byte(`
- Media:
    - Plex:
        href: https://plex.lab.lan
`), 0o644))

	got := NewHomepage(services, filepath.Join(dir, "missing.yaml"), logger.NewNop(), nil).Discover(context.Background())
	require.Len(t, got, 1)

	require.Empty(t, NewHomepage("", "", logger.NewNop(), nil).Discover(context.Background()))
}

type namedAdapter struct {
	name    string
	entries []domain.Entry
	delay   time.Duration
}

func (a namedAdapter) Name() string { return a.name }

func (a namedAdapter) Discover(ctx context.Context) []domain.Entry {
	select {
	case <-time.After(a.delay):
		return a.entries
	case <-ctx.Done():
		return []domain.Entry{}
	}
}

func TestMultiKeepsAdapterOrder(t *testing.T) {
	slow := namedAdapter{name: "slow", entries: []domain.Entry{{Name: "first"}}, delay: 30 * time.Millisecond}
	fast := namedAdapter{name: "fast", entries: []domain.Entry{{Name: "second"}, {Name: "third"}}}

	m := NewMulti(slow, fast)
	require.Equal(t, "slow+fast", m.Name())

	got := m.Discover(context.Background())
	require.Len(t, got, 3)
	require.Equal(t, "first", got[0].Name)
	require.Equal(t, "second", got[1].Name)
	require.Equal(t, "third", got[2].Name)
}

func TestRunStampsScan(t *testing.T) {
	before := time.Now().UTC()
	scan := Run(context.Background(), namedAdapter{name: "x"}, "box", time.Second)

	require.Equal(t, "box", scan.Host)
	require.NotNil(t, scan.Entries)
	require.False(t, scan.ScannedAt.Before(before.Add(-time.Second)))
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{DiscoveryAdapters: []string{"docker-cli"}}
	a, err := FromConfig(cfg, "h", logger.NewNop(), nil)
	require.NoError(t, err)
	require.Equal(t, AdapterDockerCLI, a.Name())

	cfg.DiscoveryAdapters = []string{"docker-cli", "homepage"}
	a, err = FromConfig(cfg, "h", logger.NewNop(), nil)
	require.NoError(t, err)
	require.Equal(t, "docker-cli+homepage", a.Name())

	cfg.DiscoveryAdapters = []string{"docker-api"}
	a, err = FromConfig(cfg, "h", logger.NewNop(), nil)
	require.NoError(t, err)
	require.Equal(t, AdapterDockerAPI, a.Name())

	cfg.DiscoveryAdapters = []string{"podman"}
	_, err = FromConfig(cfg, "h", logger.NewNop(), nil)
	require.Error(t, err)
}

func TestHostname(t *testing.T) {
	require.NotEmpty(t, Hostname())
}
