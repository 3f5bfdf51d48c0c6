package config

type ClusterConfig struct {
	Enabled         bool   // Must be explicitly enabled to allow live-quota inspection
	Kubeconfig      string // Path to kubeconfig file (empty = in-cluster auth)
	CacheTTLSeconds int    // Live ResourceQuota cache TTL (0 = no caching)
}
