package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ephico2real2/qrs/config"
	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

type Client struct {
	clientset kubernetes.Interface
	config    config.ClusterConfig
	cache     *quotaCache
}

type quotaCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	hard      corev1.ResourceList
	found     bool
	expiresAt time.Time
}

func NewClient(cfg config.ClusterConfig) (*Client, error) {
	var restConfig *rest.Config
	var err error

	if cfg.Kubeconfig != "" {
		// Out-of-cluster: use kubeconfig file
		restConfig, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
		log.Info().Str("kubeconfig", cfg.Kubeconfig).Msg("Using kubeconfig for cluster authentication")
	} else {
		// In-cluster: use service account
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
		log.Info().Msg("Using in-cluster authentication")
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return newClient(clientset, cfg), nil
}

func newClient(clientset kubernetes.Interface, cfg config.ClusterConfig) *Client {
	client := &Client{
		clientset: clientset,
		config:    cfg,
	}

	if cfg.CacheTTLSeconds > 0 {
		client.cache = &quotaCache{
			entries: make(map[string]cacheEntry),
			ttl:     time.Duration(cfg.CacheTTLSeconds) * time.Second,
		}
		log.Info().Int("ttl_seconds", cfg.CacheTTLSeconds).Msg("Live quota caching enabled")
	}

	return client
}

// HardLimits fetches the hard limits of the named ResourceQuota, or found=false when
// the cluster has no such quota.
func (c *Client) HardLimits(ctx context.Context, namespace, name string) (corev1.ResourceList, bool, error) {
	cacheKey := fmt.Sprintf("%s/%s", namespace, name)

	if c.cache != nil {
		if hard, found, ok := c.cache.get(cacheKey); ok {
			return hard, found, nil
		}
	}

	log.Debug().Msgf("Fetching live ResourceQuota [%s/%s]...", namespace, name)
	liveQuota, err := c.clientset.CoreV1().ResourceQuotas(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			if c.cache != nil {
				c.cache.set(cacheKey, nil, false)
			}
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get resourcequota %s/%s: %w", namespace, name, err)
	}

	if c.cache != nil {
		c.cache.set(cacheKey, liveQuota.Spec.Hard, true)
	}

	return liveQuota.Spec.Hard, true, nil
}

func (qc *quotaCache) get(key string) (corev1.ResourceList, bool, bool) {
	qc.mu.RLock()
	defer qc.mu.RUnlock()

	entry, ok := qc.entries[key]
	if !ok {
		return nil, false, false
	}

	if time.Now().After(entry.expiresAt) {
		return nil, false, false
	}

	return entry.hard, entry.found, true
}

func (qc *quotaCache) set(key string, hard corev1.ResourceList, found bool) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.entries[key] = cacheEntry{
		hard:      hard,
		found:     found,
		expiresAt: time.Now().Add(qc.ttl),
	}
}
