package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

// Memory is an in-memory MetadataStore used by unit and integration tests
// that do not need a real Postgres instance.
type Memory struct {
	mu sync.Mutex

	policies   map[string]map[int]domain.Policy // policyID -> version -> Policy
	clusters   map[string]domain.ClusterEndpoint
	registries map[string]domain.RegistryEndpoint
	storages   map[string]domain.StorageEndpoint
	topicMeta  map[string]TopicMetadataRow
	artifacts  map[string][]domain.SchemaArtifact // subject -> versions
	audit      []domain.AuditRecord
	snapshots  map[string][]domain.MetricsSnapshot // clusterID -> snapshots
}

// NewMemory constructs an empty in-memory MetadataStore.
func NewMemory() *Memory {
	return &Memory{
		policies:   map[string]map[int]domain.Policy{},
		clusters:   map[string]domain.ClusterEndpoint{},
		registries: map[string]domain.RegistryEndpoint{},
		storages:   map[string]domain.StorageEndpoint{},
		topicMeta:  map[string]TopicMetadataRow{},
		artifacts:  map[string][]domain.SchemaArtifact{},
		snapshots:  map[string][]domain.MetricsSnapshot{},
	}
}

func (m *Memory) CreatePolicy(_ context.Context, p domain.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.policies[p.PolicyID]
	if !ok {
		versions = map[int]domain.Policy{}
		m.policies[p.PolicyID] = versions
	}
	versions[p.Version] = p
	return nil
}

func (m *Memory) ActivePolicy(_ context.Context, policyType domain.PolicyType, tier string) (*domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, versions := range m.policies {
		for _, p := range versions {
			if p.Type == policyType && p.Status == domain.PolicyActive && p.TargetEnvironment == tier {
				pp := p
				return &pp, nil
			}
		}
	}
	return nil, nil
}

func (m *Memory) GetPolicy(_ context.Context, policyID string, version int) (*domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.policies[policyID]
	if !ok {
		return nil, nil
	}
	p, ok := versions[version]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListPolicyVersions(_ context.Context, policyID string) ([]domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.policies[policyID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Policy, 0, len(versions))
	for _, p := range versions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ActivatePolicy moves (policyID, version) to ACTIVE and any prior ACTIVE
// version of the same policyID to ARCHIVED, atomically — enforcing "at most
// one ACTIVE version per policy_id" and "at most one ACTIVE policy per
// (type, target_environment)" (spec.md §3).
func (m *Memory) ActivatePolicy(_ context.Context, policyID string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.policies[policyID]
	if !ok {
		return apperrors.NotFound("policy", policyID)
	}
	target, ok := versions[version]
	if !ok {
		return apperrors.NotFound("policy version", fmt.Sprintf("%s@%d", policyID, version))
	}

	for otherID, otherVersions := range m.policies {
		for v, p := range otherVersions {
			if p.Status != domain.PolicyActive {
				continue
			}
			if otherID == policyID {
				p.Status = domain.PolicyArchived
				otherVersions[v] = p
				continue
			}
			if p.Type == target.Type && p.TargetEnvironment == target.TargetEnvironment {
				p.Status = domain.PolicyArchived
				otherVersions[v] = p
			}
		}
	}

	target.Status = domain.PolicyActive
	versions[version] = target
	return nil
}

func (m *Memory) ArchivePolicy(_ context.Context, policyID string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.policies[policyID]
	if !ok {
		return apperrors.NotFound("policy", policyID)
	}
	p, ok := versions[version]
	if !ok {
		return apperrors.NotFound("policy version", fmt.Sprintf("%s@%d", policyID, version))
	}
	p.Status = domain.PolicyArchived
	versions[version] = p
	return nil
}

func (m *Memory) DeletePolicy(_ context.Context, policyID string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.policies[policyID]
	if !ok {
		return apperrors.NotFound("policy", policyID)
	}
	p, ok := versions[version]
	if !ok {
		return apperrors.NotFound("policy version", fmt.Sprintf("%s@%d", policyID, version))
	}
	if p.Status == domain.PolicyActive {
		return apperrors.Invariant("cannot delete ACTIVE policy %s@%d; archive it first", policyID, version)
	}
	delete(versions, version)
	return nil
}

func (m *Memory) GetClusterEndpoint(_ context.Context, id string) (*domain.ClusterEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep, ok := m.clusters[id]
	if !ok {
		return nil, nil
	}
	return &ep, nil
}

func (m *Memory) GetRegistryEndpoint(_ context.Context, id string) (*domain.RegistryEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep, ok := m.registries[id]
	if !ok {
		return nil, nil
	}
	return &ep, nil
}

func (m *Memory) GetStorageEndpoint(_ context.Context, id string) (*domain.StorageEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep, ok := m.storages[id]
	if !ok {
		return nil, nil
	}
	return &ep, nil
}

func (m *Memory) UpsertClusterEndpoint(_ context.Context, ep domain.ClusterEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters[ep.ID] = ep
	return nil
}

func (m *Memory) UpsertRegistryEndpoint(_ context.Context, ep domain.RegistryEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registries[ep.ID] = ep
	return nil
}

func (m *Memory) UpsertStorageEndpoint(_ context.Context, ep domain.StorageEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storages[ep.ID] = ep
	return nil
}

func (m *Memory) SaveTopicMetadata(_ context.Context, row TopicMetadataRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row.UpdatedAt = time.Now().UTC()
	if existing, ok := m.topicMeta[row.TopicName]; ok {
		row.CreatedAt = existing.CreatedAt
		row.CreatedBy = existing.CreatedBy
	} else {
		row.CreatedAt = row.UpdatedAt
	}
	m.topicMeta[row.TopicName] = row
	return nil
}

func (m *Memory) DeleteTopicMetadata(_ context.Context, topicName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.topicMeta, topicName)
	return nil
}

func (m *Memory) GetTopicMetadata(_ context.Context, topicName string) (*TopicMetadataRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.topicMeta[topicName]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) ListTopicMetadata(_ context.Context) ([]TopicMetadataRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TopicMetadataRow, 0, len(m.topicMeta))
	for _, row := range m.topicMeta {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicName < out[j].TopicName })
	return out, nil
}

func (m *Memory) SaveSchemaArtifact(_ context.Context, a domain.SchemaArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[a.Subject] = append(m.artifacts[a.Subject], a)
	return nil
}

func (m *Memory) DeleteSchemaArtifact(_ context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, subject)
	return nil
}

func (m *Memory) CountSchemaArtifactVersions(_ context.Context, subject string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.artifacts[subject]), nil
}

func (m *Memory) WriteAudit(_ context.Context, rec domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, rec)
	return nil
}

func (m *Memory) ListAudit(_ context.Context, changeID string) ([]domain.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditRecord
	for _, rec := range m.audit {
		if rec.ChangeID == changeID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) SaveMetricsSnapshot(_ context.Context, snap domain.MetricsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.ClusterID] = append(m.snapshots[snap.ClusterID], snap)
	return nil
}

func (m *Memory) GetLatestMetricsSnapshot(_ context.Context, clusterID string) (*domain.MetricsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := m.snapshots[clusterID]
	if len(snaps) == 0 {
		return nil, nil
	}
	latest := snaps[0]
	for _, s := range snaps[1:] {
		if s.CapturedAt.After(latest.CapturedAt) {
			latest = s
		}
	}
	return &latest, nil
}

func (m *Memory) DeleteMetricsSnapshotsOlderThan(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for clusterID, snaps := range m.snapshots {
		kept := snaps[:0]
		for _, s := range snaps {
			if s.CapturedAt.Before(before) {
				deleted++
				continue
			}
			kept = append(kept, s)
		}
		m.snapshots[clusterID] = kept
	}
	return deleted, nil
}

func (m *Memory) ListActiveClusterIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, ep := range m.clusters {
		if ep.IsActive {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ MetadataStore = (*Memory)(nil)
