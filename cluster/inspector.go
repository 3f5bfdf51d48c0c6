package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/ephico2real2/qrs/quota"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

type State string

const (
	StateMissing State = "missing" // no quota with the derived name exists in the namespace
	StateMatch   State = "match"   // live hard limits equal the declared ones
	StateDrift   State = "drift"   // a quota exists but its hard limits differ
)

// Status is the verdict for one rendered manifest against the live cluster.
type Status struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	State     State    `json:"state"`
	Drift     []string `json:"drift,omitempty"`
}

type Inspector struct {
	client *Client
}

func NewInspector(client *Client) *Inspector {
	return &Inspector{client: client}
}

// Inspect compares each rendered manifest with the cluster, preserving manifest order.
func (i *Inspector) Inspect(ctx context.Context, manifests []quota.Manifest) ([]Status, error) {
	statuses := make([]Status, 0, len(manifests))

	for _, m := range manifests {
		liveHard, found, err := i.client.HardLimits(ctx, m.Metadata.Namespace, m.Metadata.Name)
		if err != nil {
			return nil, err
		}

		status := Status{
			Name:      m.Metadata.Name,
			Namespace: m.Metadata.Namespace,
			State:     StateMissing,
		}

		if found {
			status.Drift = diffLimits(m.Spec.Hard, liveHard)
			if len(status.Drift) == 0 {
				status.State = StateMatch
			} else {
				status.State = StateDrift
			}
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

func diffLimits(declared map[corev1.ResourceName]string, live corev1.ResourceList) []string {
	var drift []string

	for _, name := range sortedResourceNames(declared) {
		value := declared[name]

		declaredQty, err := resource.ParseQuantity(value)
		if err != nil {
			// Unreachable for validated sets
			drift = append(drift, fmt.Sprintf("%s: declared value %q is not a quantity", name, value))
			continue
		}

		liveQty, ok := live[name]
		if !ok {
			drift = append(drift, fmt.Sprintf("%s: declared %s, absent from live quota", name, value))
			continue
		}

		if declaredQty.Cmp(liveQty) != 0 {
			drift = append(drift, fmt.Sprintf("%s: declared %s, live %s", name, value, liveQty.String()))
		}
	}

	for liveName := range live {
		if _, ok := declared[liveName]; !ok {
			drift = append(drift, fmt.Sprintf("%s: present in live quota but not declared", liveName))
		}
	}

	sort.Strings(drift)
	return drift
}

func sortedResourceNames(m map[corev1.ResourceName]string) []corev1.ResourceName {
	names := make([]corev1.ResourceName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool { return names[a] < names[b] })
	return names
}
