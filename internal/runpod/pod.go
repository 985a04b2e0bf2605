package runpod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danpasecinic/rpod/internal/spec"
	"github.com/danpasecinic/rpod/internal/types"
)

const podFields = `
  id
  name
  imageName
  desiredStatus
  gpuCount
  costPerHr
  volumeInGb
  containerDiskInGb
  machine { gpuDisplayName }
  runtime {
    uptimeInSeconds
    ports { ip isIpPublic privatePort publicPort }
  }`

var queryPod = fmt.Sprintf(`query pod($podId: String!) {
  pod(input: { podId: $podId }) {%s
  }
}`, podFields)

var mutationDeploy = fmt.Sprintf(`mutation deploy($input: PodFindAndDeployOnDemandInput!) {
  podFindAndDeployOnDemand(input: $input) {%s
  }
}`, podFields)

const mutationResume = `mutation resume($podId: String!, $gpuCount: Int!) {
  podResume(input: { podId: $podId, gpuCount: $gpuCount }) { id desiredStatus }
}`

const mutationStop = `mutation stop($podId: String!) {
  podStop(input: { podId: $podId }) { id desiredStatus }
}`

const mutationTerminate = `mutation terminate($podId: String!) {
  podTerminate(input: { podId: $podId })
}`

const queryGPUTypes = `query gpuTypes {
  gpuTypes { id displayName memoryInGb }
}`

type portPayload struct {
	IP          string `json:"ip"`
	IsIPPublic  bool   `json:"isIpPublic"`
	PrivatePort int    `json:"privatePort"`
	PublicPort  int    `json:"publicPort"`
}

type runtimePayload struct {
	UptimeInSeconds int           `json:"uptimeInSeconds"`
	Ports           []portPayload `json:"ports"`
}

type podPayload struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ImageName         string  `json:"imageName"`
	DesiredStatus     string  `json:"desiredStatus"`
	GPUCount          int     `json:"gpuCount"`
	CostPerHr         float64 `json:"costPerHr"`
	VolumeInGB        int     `json:"volumeInGb"`
	ContainerDiskInGB int     `json:"containerDiskInGb"`
	Machine           struct {
		GPUDisplayName string `json:"gpuDisplayName"`
	} `json:"machine"`
	Runtime *runtimePayload `json:"runtime"`
}

// classifyStatus maps the provider's desiredStatus onto the CLI's
// three-valued status. Anything but RUNNING or EXITED is invalid.
func classifyStatus(desired string) types.PodStatus {
	switch strings.ToUpper(desired) {
	case "RUNNING":
		return types.PodRunning
	case "EXITED":
		return types.PodStopped
	default:
		return types.PodInvalid
	}
}

func (p *podPayload) toPod() *types.Pod {
	pod := &types.Pod{
		ID:              p.ID,
		Name:            p.Name,
		Image:           p.ImageName,
		Status:          classifyStatus(p.DesiredStatus),
		GPUCount:        p.GPUCount,
		GPUModel:        p.Machine.GPUDisplayName,
		VolumeGB:        p.VolumeInGB,
		ContainerDiskGB: p.ContainerDiskInGB,
		CostPerHour:     p.CostPerHr,
	}
	if p.Runtime != nil {
		pod.UptimeSeconds = p.Runtime.UptimeInSeconds
		for _, port := range p.Runtime.Ports {
			if port.PrivatePort == 22 && port.IsIPPublic {
				pod.IPAddress = port.IP
				pod.SSHPort = port.PublicPort
				break
			}
		}
	}
	return pod
}

// GetPod fetches a pod by provider ID. A missing pod is ErrPodNotFound.
func (c *Client) GetPod(podID string) (*types.Pod, error) {
	var data struct {
		Pod *podPayload `json:"pod"`
	}
	if err := c.do(queryPod, map[string]interface{}{"podId": podID}, &data); err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			// The API answers with unparseable output for pods that no
			// longer exist instead of a clean null.
			return nil, ErrPodNotFound
		}
		if isNotFoundMessage(err) {
			return nil, ErrPodNotFound
		}
		return nil, err
	}
	if data.Pod == nil || data.Pod.ID == "" {
		return nil, ErrPodNotFound
	}
	return data.Pod.toPod(), nil
}

func isNotFoundMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// CreateRequest describes a new on-demand pod.
type CreateRequest struct {
	Name            string
	Image           string
	GPUTypeID       string
	GPUCount        int
	VolumeGB        int
	ContainerDiskGB int
	Ports           string
}

// CreatePod provisions an on-demand pod and returns its initial state.
// The pod usually has no network info yet; use WaitForPodReady.
func (c *Client) CreatePod(req CreateRequest) (*types.Pod, error) {
	input := map[string]interface{}{
		"name":              req.Name,
		"imageName":         req.Image,
		"gpuTypeId":         req.GPUTypeID,
		"gpuCount":          req.GPUCount,
		"volumeInGb":        req.VolumeGB,
		"containerDiskInGb": req.ContainerDiskGB,
		"volumeMountPath":   "/workspace",
		"supportPublicIp":   true,
		"startSsh":          true,
		"ports":             req.Ports,
	}

	var data struct {
		Pod *podPayload `json:"podFindAndDeployOnDemand"`
	}
	if err := c.do(mutationDeploy, map[string]interface{}{"input": input}, &data); err != nil {
		return nil, fmt.Errorf("create pod: %w", err)
	}
	if data.Pod == nil || data.Pod.ID == "" {
		return nil, &APIError{Message: "create pod: no pod ID in response"}
	}
	return data.Pod.toPod(), nil
}

// StartPod resumes a stopped pod. Starting a pod that is already
// running is a no-op, not an error.
func (c *Client) StartPod(podID string, gpuCount int) error {
	if gpuCount < 1 {
		gpuCount = 1
	}
	err := c.do(mutationResume, map[string]interface{}{"podId": podID, "gpuCount": gpuCount}, nil)
	if err == nil {
		return nil
	}
	if pod, getErr := c.GetPod(podID); getErr == nil && pod.Status == types.PodRunning {
		return nil
	}
	return fmt.Errorf("start pod %s: %w", podID, err)
}

// StopPod stops a running pod. Stopping a pod that is already stopped
// is a no-op, not an error.
func (c *Client) StopPod(podID string) error {
	err := c.do(mutationStop, map[string]interface{}{"podId": podID}, nil)
	if err == nil {
		return nil
	}
	if pod, getErr := c.GetPod(podID); getErr == nil && pod.Status == types.PodStopped {
		return nil
	}
	return fmt.Errorf("stop pod %s: %w", podID, err)
}

// TerminatePod destroys a pod. The API sometimes returns a body that
// is not valid JSON on a successful terminate, so a decode failure is
// only an error if the pod still exists afterwards.
func (c *Client) TerminatePod(podID string) error {
	err := c.do(mutationTerminate, map[string]interface{}{"podId": podID}, nil)
	if err == nil {
		return nil
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		if _, getErr := c.GetPod(podID); errors.Is(getErr, ErrPodNotFound) {
			return nil
		}
	}
	return fmt.Errorf("terminate pod %s: %w", podID, err)
}

// ListGPUTypes returns the provider's GPU inventory in API order.
func (c *Client) ListGPUTypes() ([]spec.GPUType, error) {
	var data struct {
		GPUTypes []spec.GPUType `json:"gpuTypes"`
	}
	if err := c.do(queryGPUTypes, nil, &data); err != nil {
		return nil, fmt.Errorf("list gpu types: %w", err)
	}
	return data.GPUTypes, nil
}

// WaitForPodReady polls until the pod reports public network info or
// the context is done. A pod that briefly reads as missing during
// provisioning is retried, not failed.
func (c *Client) WaitForPodReady(ctx context.Context, podID string) (*types.Pod, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		pod, err := c.GetPod(podID)
		if err != nil && !errors.Is(err, ErrPodNotFound) {
			return nil, err
		}
		if err == nil && pod.Reachable() {
			return pod, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pod %s not ready: %w", podID, ctx.Err())
		case <-ticker.C:
		}
	}
}
