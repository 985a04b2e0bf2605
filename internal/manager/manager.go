// Package manager composes the store, the provider client, and the SSH
// config reconciler into the pod lifecycle operations the CLI exposes.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danpasecinic/rpod/internal/config"
	"github.com/danpasecinic/rpod/internal/runpod"
	"github.com/danpasecinic/rpod/internal/spec"
	"github.com/danpasecinic/rpod/internal/sshconfig"
	"github.com/danpasecinic/rpod/internal/state"
	"github.com/danpasecinic/rpod/internal/types"
)

// Provider is the pod lifecycle capability. StopPod must be safe to
// call on an already-stopped pod; the scheduler relies on that for
// at-least-once task execution.
type Provider interface {
	GetPod(podID string) (*types.Pod, error)
	CreatePod(req runpod.CreateRequest) (*types.Pod, error)
	StartPod(podID string, gpuCount int) error
	StopPod(podID string) error
	TerminatePod(podID string) error
	ListGPUTypes() ([]spec.GPUType, error)
	WaitForPodReady(ctx context.Context, podID string) (*types.Pod, error)
}

type Manager struct {
	store    *state.Store
	provider Provider
	ssh      *sshconfig.Manager
	cfg      *config.Config
}

func New(store *state.Store, provider Provider, ssh *sshconfig.Manager, cfg *config.Config) *Manager {
	return &Manager{
		store:    store,
		provider: provider,
		ssh:      ssh,
		cfg:      cfg,
	}
}

// CreateOptions describes a new pod. GPU and Storage are the domain
// spec strings ("2xA100", "500GB"). ContainerDisk and Image fall back
// to the configured defaults when empty.
type CreateOptions struct {
	Alias         string
	GPU           string
	Storage       string
	ContainerDisk string
	Image         string
	Config        types.PodConfig
	Force         bool
}

// Create provisions a pod, tracks it under the alias, and writes the
// SSH config entry once the pod reports network info. If the wait fails
// the returned pod is still non-nil and the alias is already tracked;
// a later start or track refreshes the SSH entry.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*types.Pod, error) {
	if opts.Alias == "" {
		return nil, fmt.Errorf("alias cannot be empty")
	}

	gpu, err := spec.ParseGPU(opts.GPU)
	if err != nil {
		return nil, err
	}
	volumeGB, err := spec.ParseStorage(opts.Storage)
	if err != nil {
		return nil, err
	}
	containerDiskGB := m.cfg.ContainerDiskGB
	if opts.ContainerDisk != "" {
		if containerDiskGB, err = spec.ParseStorage(opts.ContainerDisk); err != nil {
			return nil, err
		}
	}
	image := opts.Image
	if image == "" {
		image = m.cfg.DefaultImage
	}

	// Reject the alias before spending money on the provider call.
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if _, taken := doc.Pods[opts.Alias]; taken && !opts.Force {
		return nil, fmt.Errorf("alias %q: %w", opts.Alias, state.ErrAliasExists)
	}

	inventory, err := m.provider.ListGPUTypes()
	if err != nil {
		return nil, err
	}
	gpuType, err := spec.ResolveGPUType(gpu.Model, inventory)
	if err != nil {
		return nil, err
	}

	pod, err := m.provider.CreatePod(runpod.CreateRequest{
		Name:            opts.Alias,
		Image:           image,
		GPUTypeID:       gpuType.ID,
		GPUCount:        gpu.Count,
		VolumeGB:        volumeGB,
		ContainerDiskGB: containerDiskGB,
		Ports:           m.cfg.Ports,
	})
	if err != nil {
		return nil, err
	}

	err = m.store.Mutate(func(doc *state.Document) error {
		if err := doc.AddAlias(opts.Alias, pod.ID, opts.Force); err != nil {
			return fmt.Errorf("alias %q: %w", opts.Alias, err)
		}
		for key, value := range opts.Config {
			if err := doc.SetConfigValue(opts.Alias, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pod, err
	}
	pod.Alias = opts.Alias

	ready, err := m.provider.WaitForPodReady(ctx, pod.ID)
	if err != nil {
		return pod, fmt.Errorf("pod created and tracked, but: %w", err)
	}
	ready.Alias = opts.Alias
	if err := m.upsertSSH(opts.Alias, ready); err != nil {
		return ready, err
	}
	return ready, nil
}

// CreateFromTemplate instantiates a template: the alias comes from the
// pattern at the lowest free index unless overridden, and the template
// config is merged under any extra config.
func (m *Manager) CreateFromTemplate(ctx context.Context, identifier, aliasOverride string, extra types.PodConfig, force bool) (*types.Pod, error) {
	tmpl, err := m.Template(identifier)
	if err != nil {
		return nil, err
	}

	alias := aliasOverride
	if alias == "" {
		doc, err := m.store.Load()
		if err != nil {
			return nil, err
		}
		alias = tmpl.AliasAt(tmpl.NextAliasIndex(doc.Aliases()))
	}

	merged := tmpl.Config.Clone()
	if merged == nil {
		merged = make(types.PodConfig)
	}
	for key, value := range extra {
		merged[key] = value
	}

	return m.Create(ctx, CreateOptions{
		Alias:         alias,
		GPU:           tmpl.GPUSpec,
		Storage:       tmpl.StorageSpec,
		ContainerDisk: tmpl.ContainerDiskSpec,
		Image:         tmpl.Image,
		Config:        merged,
		Force:         force,
	})
}

// Track registers an existing provider pod under an alias. An empty
// alias defaults to the pod's provider-side name. The SSH entry is
// written only if the pod is currently reachable.
func (m *Manager) Track(alias, podID string, force bool) (*types.Pod, error) {
	pod, err := m.provider.GetPod(podID)
	if err != nil {
		return nil, err
	}

	if alias == "" {
		alias = pod.Name
		if alias == "" {
			alias = podID
		}
	}

	err = m.store.Mutate(func(doc *state.Document) error {
		if err := doc.AddAlias(alias, podID, force); err != nil {
			return fmt.Errorf("alias %q: %w", alias, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pod.Alias = alias
	if err := m.upsertSSH(alias, pod); err != nil {
		return pod, err
	}
	return pod, nil
}

// Untrack removes the alias mapping and its SSH entry; the remote pod
// is left alone. Returns the pod ID the alias mapped to.
func (m *Manager) Untrack(alias string) (string, error) {
	var podID string
	err := m.store.Mutate(func(doc *state.Document) error {
		var err error
		podID, err = doc.RemoveAlias(alias)
		return err
	})
	if err != nil {
		return "", err
	}
	if _, err := m.ssh.Remove(alias); err != nil {
		return podID, err
	}
	return podID, nil
}

// Start resumes the pod, waits for it to come back with network info,
// and refreshes the SSH entry.
func (m *Manager) Start(ctx context.Context, alias string) (*types.Pod, error) {
	podID, err := m.podID(alias)
	if err != nil {
		return nil, err
	}

	gpuCount := 1
	if pod, err := m.provider.GetPod(podID); err == nil && pod.GPUCount > 0 {
		gpuCount = pod.GPUCount
	}

	if err := m.provider.StartPod(podID, gpuCount); err != nil {
		return nil, err
	}

	pod, err := m.provider.WaitForPodReady(ctx, podID)
	if err != nil {
		return nil, err
	}
	pod.Alias = alias
	if err := m.upsertSSH(alias, pod); err != nil {
		return pod, err
	}
	return pod, nil
}

// StopPod stops the pod behind an alias and drops its SSH entry. The
// method satisfies the scheduler's stop capability, so a scheduled stop
// and an interactive stop share one path.
func (m *Manager) StopPod(alias string) error {
	podID, err := m.podID(alias)
	if err != nil {
		return err
	}
	if err := m.provider.StopPod(podID); err != nil {
		return err
	}
	if _, err := m.ssh.Remove(alias); err != nil {
		return err
	}
	return nil
}

// Destroy terminates the remote pod and removes the alias and its SSH
// entry. Returns the terminated pod ID.
func (m *Manager) Destroy(alias string) (string, error) {
	podID, err := m.podID(alias)
	if err != nil {
		return "", err
	}
	if err := m.provider.TerminatePod(podID); err != nil {
		return "", err
	}
	err = m.store.Mutate(func(doc *state.Document) error {
		_, err := doc.RemoveAlias(alias)
		return err
	})
	if err != nil {
		return podID, err
	}
	if _, err := m.ssh.Remove(alias); err != nil {
		return podID, err
	}
	return podID, nil
}

// List returns the provider's view of every tracked pod, sorted by
// alias. A pod the provider no longer knows shows up as invalid rather
// than failing the whole listing.
func (m *Manager) List() ([]types.Pod, error) {
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	aliases := make([]string, 0, len(doc.Pods))
	for alias := range doc.Pods {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	pods := make([]types.Pod, 0, len(aliases))
	for _, alias := range aliases {
		pods = append(pods, m.lookup(alias, doc.Pods[alias].PodID))
	}
	return pods, nil
}

// Get returns the provider's view of one tracked pod.
func (m *Manager) Get(alias string) (*types.Pod, error) {
	podID, err := m.podID(alias)
	if err != nil {
		return nil, err
	}
	pod := m.lookup(alias, podID)
	return &pod, nil
}

func (m *Manager) lookup(alias, podID string) types.Pod {
	pod, err := m.provider.GetPod(podID)
	if err != nil {
		return types.Pod{ID: podID, Alias: alias, Status: types.PodInvalid}
	}
	pod.Alias = alias
	return *pod
}

// ConfigGet returns the per-pod config bag for an alias.
func (m *Manager) ConfigGet(alias string) (types.PodConfig, error) {
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.Config(alias)
}

// ConfigSet applies key/value pairs to an alias's config bag. Empty
// values clear their keys.
func (m *Manager) ConfigSet(alias string, values types.PodConfig) error {
	return m.store.Mutate(func(doc *state.Document) error {
		for key, value := range values {
			if err := doc.SetConfigValue(alias, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// CleanReport summarizes one cleanup pass.
type CleanReport struct {
	RemovedAliases []string
	RemovedBlocks  int
}

// Clean removes aliases whose pods no longer exist at the provider and
// prunes SSH blocks for aliases that are no longer tracked. Task
// cleanup belongs to the scheduler engine.
func (m *Manager) Clean() (CleanReport, error) {
	var report CleanReport

	doc, err := m.store.Load()
	if err != nil {
		return report, err
	}

	for alias, meta := range doc.Pods {
		if _, err := m.provider.GetPod(meta.PodID); errors.Is(err, runpod.ErrPodNotFound) {
			report.RemovedAliases = append(report.RemovedAliases, alias)
		}
	}
	sort.Strings(report.RemovedAliases)

	if len(report.RemovedAliases) > 0 {
		err = m.store.Mutate(func(doc *state.Document) error {
			for _, alias := range report.RemovedAliases {
				if _, err := doc.RemoveAlias(alias); err != nil && !errors.Is(err, state.ErrAliasNotFound) {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return report, err
		}
	}

	doc, err = m.store.Load()
	if err != nil {
		return report, err
	}
	valid := make(map[string]bool, len(doc.Pods))
	for alias := range doc.Pods {
		valid[alias] = true
	}
	report.RemovedBlocks, err = m.ssh.Reconcile(valid)
	return report, err
}

func (m *Manager) podID(alias string) (string, error) {
	doc, err := m.store.Load()
	if err != nil {
		return "", err
	}
	podID, err := doc.PodID(alias)
	if err != nil {
		return "", fmt.Errorf("alias %q: %w", alias, err)
	}
	return podID, nil
}

func (m *Manager) upsertSSH(alias string, pod *types.Pod) error {
	if !pod.Reachable() {
		return nil
	}
	return m.ssh.Upsert(sshconfig.Entry{
		Alias:        alias,
		PodID:        pod.ID,
		HostName:     pod.IPAddress,
		Port:         pod.SSHPort,
		User:         m.cfg.SSHUser,
		IdentityFile: m.cfg.IdentityFile,
	})
}
