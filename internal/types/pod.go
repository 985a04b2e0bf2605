package types

// PodStatus represents the provider-reported state of a pod
type PodStatus string

const (
	PodRunning PodStatus = "running"
	PodStopped PodStatus = "stopped"
	// PodInvalid means the provider no longer knows the pod, or the
	// record could not be resolved at all.
	PodInvalid PodStatus = "invalid"
)

// ConfigKeyPath is the working-directory key. It is the only key the
// tool interprets; any other key is stored and round-tripped opaquely.
const ConfigKeyPath = "path"

// PodConfig is the per-pod configuration bag.
type PodConfig map[string]string

// Path returns the configured working directory, or "" if unset.
func (c PodConfig) Path() string {
	return c[ConfigKeyPath]
}

// Clone returns a copy so callers can mutate without aliasing the store.
func (c PodConfig) Clone() PodConfig {
	if c == nil {
		return nil
	}
	out := make(PodConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// PodMetadata is the locally persisted record for one tracked pod.
// The pod ID is assigned by the provider at creation and never changes.
type PodMetadata struct {
	PodID  string    `json:"podId"`
	Config PodConfig `json:"config,omitempty"`
}

// Pod joins a tracked alias with the provider's current view of the
// instance. Network, cost, and hardware fields are zero unless the
// provider reported them.
type Pod struct {
	ID              string    `json:"id"`
	Alias           string    `json:"alias"`
	Status          PodStatus `json:"status"`
	Name            string    `json:"name,omitempty"`
	Image           string    `json:"image,omitempty"`
	GPUCount        int       `json:"gpuCount,omitempty"`
	GPUModel        string    `json:"gpuModel,omitempty"`
	VolumeGB        int       `json:"volumeGb,omitempty"`
	ContainerDiskGB int       `json:"containerDiskGb,omitempty"`
	IPAddress       string    `json:"ipAddress,omitempty"`
	SSHPort         int       `json:"sshPort,omitempty"`
	CostPerHour     float64   `json:"costPerHour,omitempty"`
	UptimeSeconds   int       `json:"uptimeSeconds,omitempty"`
}

// Reachable reports whether the pod has the network info needed for an
// SSH config entry.
func (p Pod) Reachable() bool {
	return p.IPAddress != "" && p.SSHPort > 0
}
