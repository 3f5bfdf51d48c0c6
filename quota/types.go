package quota

import (
	corev1 "k8s.io/api/core/v1"
)

// Set is one environment's worth of quota declarations, in author order.
type Set struct {
	Quotas []Declaration `json:"quotas"`
}

// Declaration is a single namespace/limits pair as authored in a quota value file.
type Declaration struct {
	Namespace string            `json:"namespace"`
	Limits    map[string]string `json:"limits"`
}

// Manifest is one rendered ResourceQuota document. The hard limits are kept as the
// author's verbatim strings so repeated renders are byte-identical.
type Manifest struct {
	APIVersion string       `json:"apiVersion"`
	Kind       string       `json:"kind"`
	Metadata   ObjectMeta   `json:"metadata"`
	Spec       ManifestSpec `json:"spec"`
}

type ObjectMeta struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type ManifestSpec struct {
	Hard map[corev1.ResourceName]string `json:"hard"`
}

const (
	resourceQuotaKind = "ResourceQuota"

	// NameSuffix is appended to a declaration's namespace to derive the manifest name.
	NameSuffix = "-quota"
)

// DerivedName is the manifest name for a declaration targeting the given namespace.
// It is never author-supplied and never overridable.
func DerivedName(namespace string) string {
	return namespace + NameSuffix
}
