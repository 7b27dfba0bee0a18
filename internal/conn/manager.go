// Package conn implements the dynamic connection manager: it maps a
// logical resource id (cluster_id, registry_id, storage_id) to a live,
// cached, lazily-constructed backend client, with per-id single-flight
// construction (spec.md §4.C).
package conn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Kind identifies which resource family an id belongs to.
type Kind string

const (
	KindCluster Kind = "cluster"
	KindRegistry Kind = "registry"
	KindStorage  Kind = "storage"
)

// EndpointStore resolves endpoint configuration rows. Backed by
// internal/store's MetadataStore.
type EndpointStore interface {
	GetClusterEndpoint(ctx context.Context, id string) (*domain.ClusterEndpoint, error)
	GetRegistryEndpoint(ctx context.Context, id string) (*domain.RegistryEndpoint, error)
	GetStorageEndpoint(ctx context.Context, id string) (*domain.StorageEndpoint, error)
}

// KafkaAdminBuilder constructs a Kafka admin client from an endpoint row.
// internal/kafkaadmin.New matches this signature.
type KafkaAdminBuilder func(ctx context.Context, ep domain.ClusterEndpoint) (any, error)

// SchemaRegistryBuilder constructs a Schema Registry client from an
// endpoint row. internal/schemaregistry.New matches this signature.
type SchemaRegistryBuilder func(ctx context.Context, ep domain.RegistryEndpoint) (any, error)

// ObjectStorageBuilder constructs an object-storage client and returns it
// alongside the configured bucket name. internal/objstorage.New matches
// this signature.
type ObjectStorageBuilder func(ctx context.Context, ep domain.StorageEndpoint) (client any, bucket string, err error)

// Closer is implemented by clients that hold resources worth releasing on
// invalidation (e.g. a pooled HTTP transport). Optional.
type Closer interface {
	Close() error
}

type storageEntry struct {
	client any
	bucket string
}

// Manager resolves resource ids to live backend clients. One Manager
// instance owns its own singleflight.Group and cache; there is no package
// level shared state (REDESIGN FLAGS: no global singleton settings/containers).
type Manager struct {
	endpoints EndpointStore

	buildKafkaAdmin      KafkaAdminBuilder
	buildSchemaRegistry  SchemaRegistryBuilder
	buildObjectStorage   ObjectStorageBuilder

	// cache stores constructed clients keyed by "<kind>:<id>".
	cache sync.Map // map[string]any

	// mu guards invalidate/clear_all against concurrent fast-path cache
	// reads per spec.md §5's "coarser write lock" shared-resource policy.
	mu sync.RWMutex

	// group deduplicates concurrent constructions for the same key,
	// replacing the source's loop-scoped asyncio.Lock (DESIGN.md).
	group singleflight.Group
}

// New constructs a Manager. Builders may be nil if that resource kind is
// never resolved by the caller (e.g. a collector-only process that never
// touches object storage).
func New(endpoints EndpointStore, kafkaAdmin KafkaAdminBuilder, schemaRegistry SchemaRegistryBuilder, objectStorage ObjectStorageBuilder) *Manager {
	return &Manager{
		endpoints:           endpoints,
		buildKafkaAdmin:     kafkaAdmin,
		buildSchemaRegistry: schemaRegistry,
		buildObjectStorage:  objectStorage,
	}
}

func cacheKey(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// GetKafkaAdmin resolves cluster_id to a live Kafka admin client.
func (m *Manager) GetKafkaAdmin(ctx context.Context, clusterID string) (any, error) {
	key := cacheKey(KindCluster, clusterID)

	m.mu.RLock()
	if v, ok := m.cache.Load(key); ok {
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.RLock()
		if v, ok := m.cache.Load(key); ok {
			m.mu.RUnlock()
			return v, nil
		}
		m.mu.RUnlock()

		ep, err := m.endpoints.GetClusterEndpoint(ctx, clusterID)
		if err != nil {
			return nil, err
		}
		if ep == nil {
			return nil, apperrors.NotFound("cluster", clusterID)
		}
		if !ep.IsActive {
			return nil, apperrors.Inactive("cluster", clusterID)
		}

		client, err := m.buildKafkaAdmin(ctx, *ep)
		if err != nil {
			return nil, apperrors.Backend("kafkaadmin", err)
		}

		if ctx.Err() != nil {
			// Construction raced a cancellation; discard rather than cache
			// a client built for an abandoned request (spec.md §4.C
			// invariant: a partially-built client from a cancelled
			// construction must never be stored).
			return nil, ctx.Err()
		}

		m.cache.Store(key, client)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetSchemaRegistry resolves registry_id to a live Schema Registry client.
func (m *Manager) GetSchemaRegistry(ctx context.Context, registryID string) (any, error) {
	key := cacheKey(KindRegistry, registryID)

	m.mu.RLock()
	if v, ok := m.cache.Load(key); ok {
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.RLock()
		if v, ok := m.cache.Load(key); ok {
			m.mu.RUnlock()
			return v, nil
		}
		m.mu.RUnlock()

		ep, err := m.endpoints.GetRegistryEndpoint(ctx, registryID)
		if err != nil {
			return nil, err
		}
		if ep == nil {
			return nil, apperrors.NotFound("registry", registryID)
		}
		if !ep.IsActive {
			return nil, apperrors.Inactive("registry", registryID)
		}

		client, err := m.buildSchemaRegistry(ctx, *ep)
		if err != nil {
			return nil, apperrors.Backend("schemaregistry", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		m.cache.Store(key, client)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetObjectStorage resolves storage_id to a live storage client and its
// configured bucket name.
func (m *Manager) GetObjectStorage(ctx context.Context, storageID string) (any, string, error) {
	key := cacheKey(KindStorage, storageID)

	m.mu.RLock()
	if v, ok := m.cache.Load(key); ok {
		m.mu.RUnlock()
		entry := v.(storageEntry)
		return entry.client, entry.bucket, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.RLock()
		if v, ok := m.cache.Load(key); ok {
			m.mu.RUnlock()
			return v, nil
		}
		m.mu.RUnlock()

		ep, err := m.endpoints.GetStorageEndpoint(ctx, storageID)
		if err != nil {
			return nil, err
		}
		if ep == nil {
			return nil, apperrors.NotFound("storage", storageID)
		}
		if !ep.IsActive {
			return nil, apperrors.Inactive("storage", storageID)
		}

		client, bucket, err := m.buildObjectStorage(ctx, *ep)
		if err != nil {
			return nil, apperrors.Backend("objstorage", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		entry := storageEntry{client: client, bucket: bucket}
		m.cache.Store(key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, "", err
	}
	entry := v.(storageEntry)
	return entry.client, entry.bucket, nil
}

// TestResult is the non-throwing outcome of TestConnection.
type TestResult struct {
	Success   bool
	LatencyMs int64
	Metadata  map[string]string
	Error     string
}

// TestConnection attempts to resolve (and thus construct, if uncached) a
// client for kind/id and reports success/failure without ever returning a
// Go error — failures are carried in the result per spec.md §4.C.
func (m *Manager) TestConnection(ctx context.Context, kind Kind, id string) TestResult {
	start := time.Now()

	var err error
	switch kind {
	case KindCluster:
		_, err = m.GetKafkaAdmin(ctx, id)
	case KindRegistry:
		_, err = m.GetSchemaRegistry(ctx, id)
	case KindStorage:
		_, _, err = m.GetObjectStorage(ctx, id)
	default:
		err = fmt.Errorf("conn: unknown kind %q", kind)
	}

	result := TestResult{LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// Invalidate removes the cache entry for one id, forcing the next resolve
// to re-construct. Called when an endpoint row is mutated (spec.md §3).
func (m *Manager) Invalidate(kind Kind, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey(kind, id)
	if v, ok := m.cache.Load(key); ok {
		if c, ok := closerOf(v); ok {
			_ = c.Close()
		}
		m.cache.Delete(key)
	}
}

// ClearAll empties every cache entry across all resource kinds.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Range(func(key, value any) bool {
		if c, ok := closerOf(value); ok {
			_ = c.Close()
		}
		m.cache.Delete(key)
		return true
	})
}

func closerOf(v any) (Closer, bool) {
	if entry, ok := v.(storageEntry); ok {
		c, ok := entry.client.(Closer)
		return c, ok
	}
	c, ok := v.(Closer)
	return c, ok
}
